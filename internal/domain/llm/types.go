package llm

// ConversationType categorizes what a conversation was started for
type ConversationType string

const (
	ConversationTypeResumeAnalysis ConversationType = "RESUME_ANALYSIS"
	ConversationTypeJobExtraction  ConversationType = "JOB_EXTRACTION"
	ConversationTypeCoverLetter    ConversationType = "COVER_LETTER_GENERATION"
	ConversationTypePDFExtraction  ConversationType = "PDF_EXTRACTION"
	ConversationTypeGeneralChat    ConversationType = "GENERAL_CHAT"
)

// IsValid returns true if the type is a known conversation type
func (t ConversationType) IsValid() bool {
	switch t {
	case ConversationTypeResumeAnalysis, ConversationTypeJobExtraction,
		ConversationTypeCoverLetter, ConversationTypePDFExtraction,
		ConversationTypeGeneralChat:
		return true
	}
	return false
}

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	ConversationStatusActive    ConversationStatus = "ACTIVE"
	ConversationStatusCompleted ConversationStatus = "COMPLETED"
	ConversationStatusFailed    ConversationStatus = "FAILED"
	ConversationStatusCancelled ConversationStatus = "CANCELLED"
)

// IsValid returns true if the status is a known status
func (s ConversationStatus) IsValid() bool {
	switch s {
	case ConversationStatusActive, ConversationStatusCompleted,
		ConversationStatusFailed, ConversationStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true once the conversation accepts no more messages
func (s ConversationStatus) IsTerminal() bool {
	return s != ConversationStatusActive
}

// MessageRole identifies who produced a message
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	RoleSystem    MessageRole = "SYSTEM"
)

// IsValid returns true if the role is a known role
func (r MessageRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
