package mcpserver

// FieldContract describes the field tree returned by infer_fields and the
// rules validate_file applies.
const FieldContract = `# frontedit Field Contract

frontedit turns the data of a content file into a tree of form fields.

## Files

- ` + "`" + `.md` + "`" + ` / ` + "`" + `.markdown` + "`" + `: YAML frontmatter between ` + "`" + `---` + "`" + ` fences, then the body.
  Every frontmatter key becomes a field; the body becomes the last field,
  ` + "`" + `contents` + "`" + `, which can be edited but never duplicated or deleted.
- ` + "`" + `.json` + "`" + `: the root object's keys become fields. A root array is exposed as
  a single ` + "`" + `items` + "`" + ` field.

## Field

` + "```" + `json
{
  "id": "meta.author",        // dot path for object keys, [i] for array items
  "name": "author",           // the data key
  "type": "text",
  "label": "Author",          // humanized key unless declared
  "value": "Ada",             // leaves only
  "fields": [],               // object children
  "items": [],                // array elements: fields for objects, raw values otherwise
  "noDuplication": false,
  "noDeletion": false
}
` + "```" + `

## Types

| type | inferred from |
|---|---|
| list | a non-empty array of only strings or only numbers |
| date | a date value, or a string that parses as a date |
| array | any other array |
| object | a nested mapping |
| number | a number |
| checkbox | a boolean |
| textarea | a string containing a newline |
| text | anything else, including null |
| select | declared only, with options |

Declared descriptors override the inferred type of matching keys.

## Validation

A validation schema lists ` + "`" + `properties` + "`" + ` with a ` + "`" + `type` + "`" + ` of number, boolean,
date, array (with ` + "`" + `items` + "`" + `) or object (with nested ` + "`" + `properties` + "`" + `).
Absent and empty values are not checked. Each problem is reported as
` + "`" + `<path> must be a <type>, got <kind>` + "`" + `, e.g. ` + "`" + `metadata.count must be a number, got string` + "`" + `.
Files may additionally be checked against a JSON Schema; those problems are
reported as ` + "`" + `<path>: <message>` + "`" + `.
`
