package api

type (
	// Answer is one recorded exchange inside an answers thread
	Answer struct {
		Key     string `json:"key"`
		Message string `json:"message,omitempty"`
		Answer  any    `json:"answer"`
	}

	// Thread is an ordered list of recorded answers. Order is the order
	// answers were stored in, which is what the send action replays
	Thread []Answer

	// Form is the message-id bookkeeping for an in-progress
	// multi-message form
	Form struct {
		ChatID      string  `json:"form_chat_id"`
		MsgID       int64   `json:"form_msg_id"`
		QuestionIDs []int64 `json:"form_question_ids"`
		AnswerIDs   []int64 `json:"form_answer_ids"`
	}

	// Session is the durable per-conversation record. Step is a copy of
	// the last rendered step so the engine can resume without the
	// script tree that produced it
	Session struct {
		Step     *Step             `json:"step,omitempty"`
		PrevStep *Step             `json:"prev_step,omitempty"`
		Answers  map[string]Thread `json:"answers,omitempty"`
		Form     *Form             `json:"form,omitempty"`
		Language string            `json:"language,omitempty"`
	}
)

// IsEmpty reports whether the record holds nothing worth persisting. A
// flush of an empty session resolves to a delete
func (s *Session) IsEmpty() bool {
	return s == nil || (s.Step == nil && s.PrevStep == nil &&
		len(s.Answers) == 0 && s.Form == nil && s.Language == "")
}

// StepPath returns the session's current step path, falling back to
// the legacy scope spelling, or empty
func (s *Session) StepPath() Path {
	if s == nil || s.Step == nil {
		return ""
	}
	if s.Step.Path != "" {
		return s.Step.Path
	}
	return s.Step.Scope
}

// Get returns the answer stored under key in the named thread
func (t Thread) Get(key string) (Answer, bool) {
	for _, a := range t {
		if a.Key == key {
			return a, true
		}
	}
	return Answer{}, false
}

// Put appends an answer, replacing any existing entry with the same key in
// place so the original ordinal position is kept
func (t Thread) Put(a Answer) Thread {
	for i, old := range t {
		if old.Key == a.Key {
			t[i] = a
			return t
		}
	}
	return append(t, a)
}
