package proto

import (
	"encoding/json"
	"errors"
	"testing"

	"skirmish/internal/battle"
)

func TestDecodeClientChoice(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"ver":1,"type":"choice","seq":7,"choices":[{"kind":"move","slot":0,"move":"Thunderbolt","target":1}]}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Seq != 7 || len(msg.Choices) != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
	choice := msg.Choices[0]
	if choice.Kind != battle.ChoiceMove || choice.Move != "Thunderbolt" || choice.Target != 1 {
		t.Fatalf("unexpected choice %+v", choice)
	}
}

func TestDecodeClientRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"syntax":        `{"type":`,
		"unknown type":  `{"type":"input"}`,
		"empty choice":  `{"type":"choice"}`,
		"newer version": `{"ver":9,"type":"heartbeat"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeClient([]byte(raw)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestRejectCarriesFirstValidationCode(t *testing.T) {
	msg := Reject(3, []*battle.ValidationError{{Slot: 0, Code: battle.CodeTargetFainted, Reason: "gone"}})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != TypeChoiceReject || decoded["code"] != string(battle.CodeTargetFainted) {
		t.Fatalf("unexpected payload %s", data)
	}
	if decoded["retry"] != true {
		t.Fatalf("validation rejects must allow a retry")
	}
}
