// internal/plan/load.go
package plan

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xkilldash9x/auroch/api/schemas"
	"go.uber.org/zap"
)

var (
	// ErrMalformedPlan means the document is structurally unusable. Callers abort.
	ErrMalformedPlan = errors.New("malformed plan")
	// ErrUnknownAction marks an action type outside the vocabulary.
	ErrUnknownAction = errors.New("unknown action type")
)

var jsonc = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed plan.schema.json
var planSchemaJSON string

const planSchemaURL = "plan.schema.json"

var (
	schemaOnce sync.Once
	planSchema *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(planSchemaURL, strings.NewReader(planSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add plan schema: %w", err)
			return
		}
		planSchema, schemaErr = c.Compile(planSchemaURL)
	})
	return planSchema, schemaErr
}

// Load reads and parses a plan file.
func Load(path string, logger *zap.Logger) (*schemas.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	return Parse(data, logger)
}

// Parse validates the document shape and decodes it. Structural problems
// (missing boxes/actions, non-array values, invalid boxes) return
// ErrMalformedPlan. An individual action that cannot be decoded is kept as an
// empty-typed placeholder so the expander skips and counts it.
func Parse(data []byte, logger *zap.Logger) (*schemas.Plan, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	var raw struct {
		Boxes   []schemas.Box     `json:"boxes"`
		Actions []json.RawMessage `json:"actions"`
	}
	if err := jsonc.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}

	p := &schemas.Plan{
		Boxes:   raw.Boxes,
		Actions: make([]schemas.Action, 0, len(raw.Actions)),
	}
	for i, b := range p.Boxes {
		if b.ID != i {
			logger.Warn("Box id does not match its position, resolving by position",
				zap.Int("position", i), zap.Int("id", b.ID))
		}
	}
	for i, msg := range raw.Actions {
		var a schemas.Action
		if err := jsonc.Unmarshal(msg, &a); err != nil {
			logger.Warn("Undecodable action kept as placeholder", zap.Int("index", i), zap.Error(err))
			a = schemas.Action{}
		}
		p.Actions = append(p.Actions, a)
	}
	return p, nil
}

// Marshal renders a plan the way the editor writes it.
func Marshal(p *schemas.Plan) ([]byte, error) {
	out := *p
	if out.Boxes == nil {
		out.Boxes = []schemas.Box{}
	}
	if out.Actions == nil {
		out.Actions = []schemas.Action{}
	}
	return jsonc.MarshalIndent(out, "", "  ")
}
