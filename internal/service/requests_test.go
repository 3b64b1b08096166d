package service

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAnswerIDs_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    AnswerIDs
		wantErr bool
	}{
		{`7`, AnswerIDs{7}, false},
		{`"7"`, AnswerIDs{7}, false},
		{`[1, 2, 3]`, AnswerIDs{1, 2, 3}, false},
		{`["1", 2]`, AnswerIDs{1, 2}, false},
		{`[]`, AnswerIDs{}, false},
		{`null`, nil, false},
		{`"abc"`, nil, true},
		{`-1`, nil, true},
		{`0`, nil, true},
		{`1.5`, nil, true},
		{`{"id": 1}`, nil, true},
		{`[true]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got AnswerIDs
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%s) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unmarshal(%s) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubmitAssignmentRequest_Selections(t *testing.T) {
	var req SubmitAssignmentRequest
	body := `{
		"assignment_id": 3,
		"answers": [
			{"question_id": 1, "answer_id": 10},
			{"question_id": 2, "answer_id": [20, "21", 20]},
			{"question_id": 1, "answer_id": "11"}
		]
	}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got := req.Selections()
	want := map[uint][]uint{
		1: {10, 11},
		2: {20, 21},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Selections = %v, want %v", got, want)
	}
}
