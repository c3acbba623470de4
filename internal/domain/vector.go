package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// EncodeVector marshals an embedding into its JSON column form.
func EncodeVector(v []float32) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// DecodeVector unmarshals a JSON embedding column. A null or empty column
// decodes to nil.
func DecodeVector(j datatypes.JSON) ([]float32, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(j, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeTagIDs marshals sys_dict tag ids for the revisions.tags column.
func EncodeTagIDs(ids []int64) datatypes.JSON {
	if len(ids) == 0 {
		return nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
