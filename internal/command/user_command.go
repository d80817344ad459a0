package command

import "strings"

// UserCommandKind identifies the stand-alone conversational commands that
// carry no order ids. They are routed before the order pipeline runs.
type UserCommandKind string

const (
	UserVerify   UserCommandKind = "verify"
	UserAccount  UserCommandKind = "account"
	UserTicket   UserCommandKind = "ticket"
	UserRegister UserCommandKind = "register"
)

// UserCommand is one parsed stand-alone command with its free-text arg.
type UserCommand struct {
	Kind UserCommandKind
	Arg  string
}

var userCommandAliases = map[string]UserCommandKind{
	"verify":   UserVerify,
	"account":  UserAccount,
	"akun":     UserAccount,
	"ticket":   UserTicket,
	"tiket":    UserTicket,
	"register": UserRegister,
	"daftar":   UserRegister,
}

// ParseUserCommand recognizes "verify <txn>", "account", "ticket <n>",
// "register <username>". Returns nil when the text is not a user command.
func ParseUserCommand(text string) *UserCommand {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || len(fields) > 2 {
		return nil
	}

	kind, ok := userCommandAliases[stripPunct(strings.ToLower(fields[0]))]
	if !ok {
		return nil
	}

	arg := ""
	if len(fields) == 2 {
		arg = fields[1]
	}

	// account takes no argument; the others require one.
	if kind == UserAccount && arg != "" {
		return nil
	}
	if kind != UserAccount && arg == "" {
		return nil
	}

	return &UserCommand{Kind: kind, Arg: arg}
}
