package localization

// Catalogue keys. Every shipped language defines all of them.
const (
	KeyWelcome             = "welcome"
	KeyHelp                = "help"
	KeyStats               = "stats"
	KeyComposePrompt       = "compose_prompt"
	KeySubmissionCancelled = "submission_cancelled"
	KeySubmissionSent      = "submission_sent"
	KeyUnsupported         = "unsupported_message_type"
	KeyMaintenance         = "maintenance"
	KeySubmissionHeader    = "submission_header"
	KeyReplyHeader         = "reply_header"
	KeyReplyPrompt         = "reply_prompt"
	KeyReplySent           = "reply_sent"
	KeyReplyCancelled      = "reply_cancelled"
	KeyMissingTarget       = "missing_target"
	KeyDeliveryFailed      = "delivery_failed"
	KeyInternalError       = "internal_error"
	KeyLogEmpty            = "log_empty"
	KeyLogCaption          = "log_caption"
	KeyLogCleared          = "log_cleared"
	KeyMaintenanceOn       = "maintenance_on"
	KeyMaintenanceOff      = "maintenance_off"

	KeyButtonReply       = "btn_reply"
	KeyButtonCompose     = "btn_compose"
	KeyButtonStats       = "btn_stats"
	KeyButtonHelp        = "btn_help"
	KeyButtonCancel      = "btn_cancel"
	KeyButtonCancelReply = "btn_cancel_reply"
)
