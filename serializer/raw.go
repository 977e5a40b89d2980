package serializer

import "fmt"

// Raw passes []byte and string values through untouched. For nodes whose
// values already are bytes; any other type is a caller bug.
type Raw struct{}

func (Raw) Dumps(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("serializer: Raw supports []byte and string, got %T", v)
	}
}

func (Raw) Loads(data []byte, v any) error {
	switch dst := v.(type) {
	case *[]byte:
		*dst = data
		return nil
	case *string:
		*dst = string(data)
		return nil
	default:
		return fmt.Errorf("serializer: Raw supports *[]byte and *string, got %T", v)
	}
}
