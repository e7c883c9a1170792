package common

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {key-name} references in strings
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces every {key-name} reference in input with the
// value stored under key-name. Unknown keys are left unchanged and logged.
//
//	ReplaceKeyReferences("{gemini_api_key}", map[string]string{"gemini_api_key": "k"}) == "k"
func ReplaceKeyReferences(input string, kvMap map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		keyName := match[1 : len(match)-1]
		if value, exists := kvMap[keyName]; exists {
			return value
		}
		logger.Warn().
			Str("reference", match).
			Msg("Unresolved key reference - key not found in KV store")
		return match
	})
}

// ReplaceInStruct replaces {key-name} references in the string and []string
// fields of the struct v points to, descending into nested structs and
// non-nil struct pointers. Values are never logged since they are usually
// API keys.
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ReplaceInStruct requires a pointer, got %T", v)
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}

	replaceInStructValue(val, "", kvMap, logger)
	return nil
}

func replaceInStructValue(val reflect.Value, path string, kvMap map[string]string, logger arbor.ILogger) {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		name := path + typ.Field(i).Name

		switch field.Kind() {
		case reflect.String:
			replaceValue(field, name, kvMap, logger)

		case reflect.Struct:
			replaceInStructValue(field, name+".", kvMap, logger)

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				replaceInStructValue(field.Elem(), name+".", kvMap, logger)
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					replaceValue(field.Index(j), fmt.Sprintf("%s[%d]", name, j), kvMap, logger)
				}
			}
		}
	}
}

func replaceValue(field reflect.Value, name string, kvMap map[string]string, logger arbor.ILogger) {
	oldValue := field.String()
	newValue := ReplaceKeyReferences(oldValue, kvMap, logger)
	if oldValue != newValue {
		field.SetString(newValue)
		logger.Debug().Str("field", name).Msg("Replaced key reference in config")
	}
}
