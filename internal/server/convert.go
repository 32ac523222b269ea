package server

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

// toValue round-trips v through JSON so field names follow the json tags.
func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewValue(generic)
}

func recordFromValue(v *structpb.Value) (entity.ExtractedRecord, error) {
	if v == nil || v.GetStructValue() == nil {
		return entity.ExtractedRecord{}, fmt.Errorf("%w: record is required", common.ErrInvalidInput)
	}
	b, err := json.Marshal(v.GetStructValue().AsMap())
	if err != nil {
		return entity.ExtractedRecord{}, fmt.Errorf("%w: record: %v", common.ErrInvalidInput, err)
	}
	rec, err := entity.DecodeRecord(b)
	if err != nil {
		return entity.ExtractedRecord{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return rec, nil
}

func stringField(s *structpb.Struct, name string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[name].GetStringValue()
}

// boolField returns def when the field is absent.
func boolField(s *structpb.Struct, name string, def bool) bool {
	v, ok := s.GetFields()[name]
	if !ok {
		return def
	}
	return v.GetBoolValue()
}
