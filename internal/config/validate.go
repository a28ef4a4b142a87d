package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// Validation error codes (E200-E299)
const (
	ErrSchema          = "E200" // value rejected by the CUE schema
	ErrNoLanes         = "E201" // at least one lane required
	ErrLaneIDs         = "E202" // lane ids must be 1..N, each once
	ErrLanesInUse      = "E203" // lanes_in_use exceeds configured lanes
	ErrPinConflict     = "E204" // two inputs/outputs on one line
	ErrSchemaInvalid   = "E205" // embedded schema failed to compile
	ErrEncodeForSchema = "E206" // config could not be encoded for checking
)

//go:embed schema.cue
var schemaSource string

// ValidationError is one configuration problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every problem found.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Validate checks c against the schema and the cross-field rules.
// Returns all errors found (does not fail-fast).
func Validate(c *Config) ValidationErrors {
	errs := validateSchema(c)
	errs = append(errs, validateLanes(c)...)
	errs = append(errs, validatePins(c)...)
	return errs
}

func validateSchema(c *Config) ValidationErrors {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return ValidationErrors{{Field: "schema", Message: err.Error(), Code: ErrSchemaInvalid}}
	}

	data, err := json.Marshal(c)
	if err != nil {
		return ValidationErrors{{Field: "config", Message: err.Error(), Code: ErrEncodeForSchema}}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := ctx.CompileBytes(data, cue.Filename("config")).Unify(def)
	err = v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		errs = append(errs, ValidationError{
			Field:   fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchema,
		})
	}
	return errs
}

func validateLanes(c *Config) ValidationErrors {
	if len(c.Lanes) == 0 {
		return ValidationErrors{{Field: "lanes", Message: "at least one lane is required", Code: ErrNoLanes}}
	}

	var errs ValidationErrors

	ids := make([]int, len(c.Lanes))
	for i, l := range c.Lanes {
		ids[i] = l.ID
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != i+1 {
			errs = append(errs, ValidationError{
				Field:   "lanes",
				Message: fmt.Sprintf("lane ids must be 1..%d with no gaps or duplicates, got %v", len(ids), ids),
				Code:    ErrLaneIDs,
			})
			break
		}
	}

	if c.Race.LanesInUse > len(c.Lanes) {
		errs = append(errs, ValidationError{
			Field:   "race.lanes_in_use",
			Message: fmt.Sprintf("%d exceeds the %d configured lanes", c.Race.LanesInUse, len(c.Lanes)),
			Code:    ErrLanesInUse,
		})
	}
	return errs
}

func validatePins(c *Config) ValidationErrors {
	owners := map[int]string{}
	var errs ValidationErrors

	claim := func(pin int, who string) {
		if prev, taken := owners[pin]; taken {
			errs = append(errs, ValidationError{
				Field:   who,
				Message: fmt.Sprintf("line %d already used by %s", pin, prev),
				Code:    ErrPinConflict,
			})
			return
		}
		owners[pin] = who
	}

	claim(c.GPIO.Release, "gpio.release")
	claim(c.GPIO.Reset, "gpio.reset")
	claim(c.GPIO.Indicator, "gpio.indicator")
	for i, l := range c.Lanes {
		claim(l.Pin, fmt.Sprintf("lanes[%d].pin", i))
	}
	return errs
}

// fieldPath renders a CUE error path relative to the config root.
func fieldPath(path []string) string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	if len(path) == 0 {
		return "config"
	}
	return strings.Join(path, ".")
}
