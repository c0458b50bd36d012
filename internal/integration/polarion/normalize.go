package polarion

import "github.com/Jasbris/polarion-node/internal/operation"

// Normalize flattens a decoded response into output records:
//   - {"data": [...]} yields one record per element of data
//   - a bare array yields one record per element
//   - any other object yields itself
//
// Elements and responses that are not objects are wrapped as {"value": v}.
func Normalize(response interface{}) []operation.Record {
	switch v := response.(type) {
	case map[string]interface{}:
		if data, ok := v["data"].([]interface{}); ok {
			return flatten(data)
		}
		return []operation.Record{v}
	case []interface{}:
		return flatten(v)
	case nil:
		return nil
	default:
		return []operation.Record{{"value": v}}
	}
}

func flatten(elements []interface{}) []operation.Record {
	records := make([]operation.Record, 0, len(elements))
	for _, el := range elements {
		if obj, ok := el.(map[string]interface{}); ok {
			records = append(records, obj)
			continue
		}
		records = append(records, operation.Record{"value": el})
	}
	return records
}
