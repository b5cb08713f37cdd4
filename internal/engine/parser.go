package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParsedReply is the structured payload extracted from the assistant's
// final message.
type ParsedReply struct {
	Reply        string
	UpdatedNotes string
	ScoreChange  int
	// Degraded is true when the raw text was not a structured payload and
	// was passed through as the reply verbatim.
	Degraded bool
	// Repaired is true when the payload only parsed after JSON repair.
	Repaired bool
}

// ParseReply extracts {reply, updated_notes, score_change} from the raw
// run output. Malformed JSON is first run through repair; if the text
// still is not a JSON object, it degrades to raw-text passthrough:
// (rawText, "", 0). ParseReply never fails — a bad payload only loses
// structure, never the turn.
func ParseReply(raw string) ParsedReply {
	fields, repaired, ok := parseObject(raw)
	if !ok {
		return ParsedReply{Reply: raw, Degraded: true}
	}

	return ParsedReply{
		Reply:        stringField(fields, "reply"),
		UpdatedNotes: stringField(fields, "updated_notes"),
		ScoreChange:  ClampDelta(intField(fields, "score_change")),
		Repaired:     repaired,
	}
}

// parseObject unmarshals raw as a JSON object, attempting repair when the
// text at least looks like one. Plain prose never round-trips through
// repair, so a chatty non-JSON reply stays byte-identical in the degraded
// path.
func parseObject(raw string) (map[string]json.RawMessage, bool, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		return fields, false, true
	}

	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, false, false
	}

	fixed, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, false, false
	}
	if err := json.Unmarshal([]byte(fixed), &fields); err != nil {
		return nil, false, false
	}
	return fields, true, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	msg, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	// Non-string value: keep its JSON rendering rather than dropping it
	return strings.TrimSpace(string(msg))
}

// intField coerces the field to an integer. Numbers are truncated,
// numeric strings parsed; anything else defaults to 0 so a malformed
// score never fails the turn.
func intField(fields map[string]json.RawMessage, key string) int {
	msg, ok := fields[key]
	if !ok {
		return 0
	}

	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return saturateInt(f)
	}

	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return saturateInt(f)
		}
	}

	return 0
}

// saturateInt converts a float to int, pinning out-of-range values to the
// nearest bound. Plain int(f) on an overflowing float is implementation-
// defined and wraps a huge positive value negative.
func saturateInt(f float64) int {
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}
