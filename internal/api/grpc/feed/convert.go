package feed

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
)

// AlarmsToList converts alarms into a protobuf list of structs.
func AlarmsToList(alarms []alarm.Alarm) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(alarms))

	for _, fired := range alarms {
		item, err := structpb.NewStruct(map[string]any{
			"id":          fired.ID,
			"name":        fired.Name,
			"mmsi":        float64(fired.MMSI),
			"reason":      string(fired.Reason),
			"description": fired.Description,
			"time":        fired.Time.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, fmt.Errorf("encode alarm %s: %w", fired.ID, err)
		}

		values = append(values, structpb.NewStructValue(item))
	}

	return &structpb.ListValue{Values: values}, nil
}

// AlarmsFromList reverses AlarmsToList.
func AlarmsFromList(list *structpb.ListValue) ([]alarm.Alarm, error) {
	alarms := make([]alarm.Alarm, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		fields := value.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("alarm %d: not a struct", i)
		}

		firedAt, err := time.Parse(time.RFC3339Nano, fields["time"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("alarm %d: parse time: %w", i, err)
		}

		alarms = append(alarms, alarm.Alarm{
			ID:          fields["id"].GetStringValue(),
			Name:        fields["name"].GetStringValue(),
			MMSI:        int64(fields["mmsi"].GetNumberValue()),
			Reason:      alarm.Reason(fields["reason"].GetStringValue()),
			Description: fields["description"].GetStringValue(),
			Time:        firedAt.UTC(),
		})
	}

	return alarms, nil
}
