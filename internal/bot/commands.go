package bot

// Command constants for Telegram bot commands.
const (
	CommandStart   = "/start"
	CommandHello   = "/hello"
	CommandRestart = "/restart"
	CommandPrev    = "/prev"
	CommandCancel  = "/cancel"
	CommandHelp    = "/help"
	CommandStatus  = "/status"
)

// menuCommands is the command list published to Telegram's command menu.
var menuCommands = []struct {
	Command     string
	Description string
}{
	{CommandStart, "Start preparing lesson notes"},
	{CommandPrev, "Go back to the previous question"},
	{CommandStatus, "Show what has been collected"},
	{CommandCancel, "Discard the current lesson notes"},
	{CommandHelp, "List the available commands"},
}
