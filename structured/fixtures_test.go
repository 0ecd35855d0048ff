package structured

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/generable/content"
	"github.com/BaSui01/generable/schema"
)

type Person struct {
	Name  string  `json:"name"`
	Age   int     `json:"age" jsonschema:"minimum=0,maximum=120"`
	Email *string `json:"email,omitempty" jsonschema:"format=email"`
}

type Mood string

func (Mood) Choices() []string { return []string{"happy", "sad"} }

type Money struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

var moneySchema = schema.Must(schema.NewObject("Money",
	schema.Prop("cents", schema.TypeInteger),
	schema.Prop("currency", schema.TypeString, schema.Pattern("[A-Z]{3}")),
))

func (Money) GenerationSchema() *schema.Descriptor { return moneySchema }

type Address struct {
	City string `json:"city"`
	Zip  string `json:"zip" jsonschema:"pattern=\\d{5}"`
}

type Order struct {
	ID       uuid.UUID `json:"id"`
	Customer Person    `json:"customer"`
	Ship     *Address  `json:"ship,omitempty"`
	Lines    []Line    `json:"lines" jsonschema:"minItems=1"`
	Mood     Mood      `json:"mood"`
	Total    Money     `json:"total"`
	Placed   time.Time `json:"placed"`
	Tags     []string  `json:"tags,omitempty" jsonschema:"maxItems=3,pattern=[a-z]+"`
}

type Line struct {
	SKU string `json:"sku" jsonschema:"description=Stock keeping unit"`
	Qty int    `json:"qty" jsonschema:"minimum=1"`
}

type Tree struct {
	Label    string `json:"label"`
	Children []Tree `json:"children"`
}

type Base struct {
	ID      string `json:"id"`
	Created string `json:"created,omitempty"`
}

type Document struct {
	Base
	Title   string `json:"title"`
	Skipped string `json:"-"`
	hidden  string
}

type Link struct {
	Href url.URL `json:"href"`
}

// point reads and writes itself as a two-element array.
type point struct{ X, Y float64 }

func (p *point) DecodeContent(v content.Value) error {
	xs, err := content.Slice[float64](v)
	if err != nil {
		return err
	}
	if len(xs) != 2 {
		return fmt.Errorf("point needs 2 coordinates, got %d", len(xs))
	}
	p.X, p.Y = xs[0], xs[1]
	return nil
}

func (p point) ContentValue() (content.Value, error) {
	return content.Array(content.Number(p.X), content.Number(p.Y)), nil
}

type Shape struct {
	Name   string  `json:"name"`
	Origin point   `json:"origin"`
	Path   []point `json:"path,omitempty"`
}

func strPtr(s string) *string { return &s }
