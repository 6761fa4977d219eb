package questionnaire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseKey identifies one answer: which template's question it belongs to.
// On the wire the key is the composite string "<templateID>_<questionID>".
type ResponseKey struct {
	TemplateID string
	QuestionID string
}

func (k ResponseKey) String() string {
	return k.TemplateID + "_" + k.QuestionID
}

func ParseResponseKey(raw string) (ResponseKey, error) {
	idx := strings.Index(raw, "_")
	if idx <= 0 || idx == len(raw)-1 {
		return ResponseKey{}, fmt.Errorf("malformed response key %q", raw)
	}
	return ResponseKey{TemplateID: raw[:idx], QuestionID: raw[idx+1:]}, nil
}

// Response is a tagged union over the three question types. Exactly the
// field matching Type carries the answer.
type Response struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Rating int    `json:"rating,omitempty"`
}

func (r Response) Empty() bool {
	switch r.Type {
	case QuestionTypeRating:
		return r.Rating == 0
	default:
		return strings.TrimSpace(r.Text) == ""
	}
}

type ResponseSet map[ResponseKey]Response

// ParseResponses decodes a wire blob keyed by composite strings into a typed
// response set. Unknown keys are rejected so stray answers cannot ride along.
func ParseResponses(raw json.RawMessage) (ResponseSet, error) {
	var wire map[string]Response
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	out := make(ResponseSet, len(wire))
	for rawKey, resp := range wire {
		key, err := ParseResponseKey(rawKey)
		if err != nil {
			return nil, err
		}
		out[key] = resp
	}
	return out, nil
}

// Encode renders a response set back to its wire form for storage.
func (rs ResponseSet) Encode() ([]byte, error) {
	wire := make(map[string]Response, len(rs))
	for key, resp := range rs {
		wire[key.String()] = resp
	}
	return json.Marshal(wire)
}

// ValidateSubmission checks a response set against a template: every
// required question answered, every answer typed like its question, ratings
// within range. Returned problems are field-level, keyed by composite key.
func ValidateSubmission(tmpl Template, responses ResponseSet) []Problem {
	var problems []Problem
	for _, q := range tmpl.Questions {
		key := ResponseKey{TemplateID: tmpl.ID, QuestionID: q.ID}
		resp, ok := responses[key]
		if !ok || resp.Empty() {
			if q.Required {
				problems = append(problems, Problem{Key: key.String(), Reason: "answer is required"})
			}
			continue
		}
		if resp.Type != q.Type {
			problems = append(problems, Problem{Key: key.String(), Reason: fmt.Sprintf("answer type %q does not match question type %q", resp.Type, q.Type)})
			continue
		}
		if q.Type == QuestionTypeRating && (resp.Rating < RatingMin || resp.Rating > RatingMax) {
			problems = append(problems, Problem{Key: key.String(), Reason: fmt.Sprintf("rating must be between %d and %d", RatingMin, RatingMax)})
		}
	}
	for key := range responses {
		if key.TemplateID != tmpl.ID {
			problems = append(problems, Problem{Key: key.String(), Reason: "answer does not belong to this questionnaire"})
			continue
		}
		if !templateHasQuestion(tmpl, key.QuestionID) {
			problems = append(problems, Problem{Key: key.String(), Reason: "unknown question"})
		}
	}
	return problems
}

type Problem struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

func templateHasQuestion(tmpl Template, questionID string) bool {
	for _, q := range tmpl.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

// Member carries the org dimensions a template's applicability is matched
// against during initiation.
type Member struct {
	EmployeeID string
	ManagerID  string
	LevelID    string
	GradeID    string
	LocationID string
}

// ResolveTemplate picks the template a member should receive for a target
// role. A template applies iff each of its set applicability fields matches
// the member; the most constrained applicable template wins, newest on ties.
// Returns false when nothing applies.
func ResolveTemplate(templates []Template, role string, member Member) (Template, bool) {
	var best Template
	bestScore := -1
	for _, tmpl := range templates {
		if tmpl.TargetRole != role {
			continue
		}
		score, ok := applicabilityScore(tmpl, member)
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && tmpl.CreatedAt.After(best.CreatedAt)) {
			best = tmpl
			bestScore = score
		}
	}
	return best, bestScore >= 0
}

func applicabilityScore(tmpl Template, member Member) (int, bool) {
	score := 0
	if tmpl.LevelID != "" {
		if tmpl.LevelID != member.LevelID {
			return 0, false
		}
		score++
	}
	if tmpl.GradeID != "" {
		if tmpl.GradeID != member.GradeID {
			return 0, false
		}
		score++
	}
	if tmpl.LocationID != "" {
		if tmpl.LocationID != member.LocationID {
			return 0, false
		}
		score++
	}
	return score, true
}
