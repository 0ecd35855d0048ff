// =============================================================================
// 📦 测试数据工厂 - Schema 与样例输出
// =============================================================================
// 提供预置的描述符、定义文件与模型输出样例
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/generable/schema"
)

// PersonJSON is a complete Person document.
const PersonJSON = `{"name": "Ada", "age": 36, "email": "ada@example.com"}`

// FencedPerson wraps PersonJSON the way chat models usually answer.
const FencedPerson = "Here you go:\n```json\n" + PersonJSON + "\n```\nAnything else?"

// DefinitionsYAML defines Person and Mood in the definitions file format.
const DefinitionsYAML = `root: Person
definitions:
  - name: Person
    kind: object
    description: A person
    properties:
      - name: name
        type: string
      - name: age
        type: integer
        guides:
          minimum: 0
          maximum: 120
      - name: email
        type: string
        format: email
        optional: true
      - name: mood
        type: Mood
        optional: true
  - name: Mood
    kind: enum
    choices: [happy, sad]
`

// =============================================================================
// 🎯 描述符工厂
// =============================================================================

// Person returns an object with a required name, an age guided to
// [0, 120] and an optional email.
func Person() *schema.Descriptor {
	return schema.Must(schema.NewObject("Person",
		schema.Prop("name", schema.TypeString),
		schema.Prop("age", schema.TypeInteger, schema.Range(0, 120)),
		schema.Prop("email", schema.TypeString).WithFormat(schema.FormatEmail).AsOptional(),
	))
}

// Mood returns a string enumeration of happy and sad.
func Mood() *schema.Descriptor {
	return schema.Must(schema.NewEnum("Mood", "happy", "sad"))
}
