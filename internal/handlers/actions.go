package handlers

// Action types for logging and user updates
const (
	ActionCommandStart    = "command_start"
	ActionCommandHelp     = "command_help"
	ActionCommandIdea     = "command_idea"
	ActionCommandNews     = "command_news"
	ActionCommandStats    = "command_stats"
	ActionCommandAutoBest = "command_auto_best"
	ActionCommandWeekly   = "command_weekly"
	ActionCommandResearch = "command_research"
	ActionCommandSchedule = "command_schedule"
	ActionCommandStopAuto = "command_stop_auto"
	ActionPublishDraft    = "publish_draft"
	ActionDeleteDraft     = "delete_draft"
)

// Callback data carried by the draft keyboard.
const (
	CallbackPublish = "publish"
	CallbackDelete  = "delete"
)
