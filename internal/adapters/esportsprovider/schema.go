package esportsprovider

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/Amund211/esportsync/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

type payloadSchema string

const (
	matchesSchema     payloadSchema = "matches"
	teamsSchema       payloadSchema = "teams"
	tournamentsSchema payloadSchema = "tournaments"
	playersSchema     payloadSchema = "players"
)

type schemaSet map[payloadSchema]*jsonschema.Schema

func compileSchemas() (schemaSet, error) {
	compiler := jsonschema.NewCompiler()
	schemas := make(schemaSet)

	for _, name := range []payloadSchema{matchesSchema, teamsSchema, tournamentsSchema, playersSchema} {
		location := fmt.Sprintf("schemas/%s.json", name)

		raw, err := embeddedSchemas.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", name, err)
		}

		if err := compiler.AddResource(location, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}

		schema, err := compiler.Compile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		schemas[name] = schema
	}

	return schemas, nil
}

// decodeValidated checks data against the schema before decoding it into T.
// Both malformed JSON and schema violations are returned as *domain.SchemaError.
func decodeValidated[T any](schemas schemaSet, name payloadSchema, data []byte) (T, error) {
	var result T

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return result, &domain.SchemaError{Resource: string(name), Err: err}
	}

	if err := schemas[name].Validate(instance); err != nil {
		return result, &domain.SchemaError{Resource: string(name), Err: err}
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, &domain.SchemaError{Resource: string(name), Err: err}
	}

	return result, nil
}
