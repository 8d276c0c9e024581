package chat

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Styles are emitted as raw escape sequences: rendering happens on the client
// terminal, so the server's own terminal capabilities must not strip them.
var (
	Reset      = color.ResetSet
	boldRed    = style(color.OpBold, color.FgRed)
	boldGreen  = style(color.OpBold, color.FgGreen)
	boldYellow = style(color.OpBold, color.FgYellow)
	boldWhite  = style(color.OpBold, color.FgWhite)
	boldCyan   = style(color.OpBold, color.FgCyan)
	bold       = style(color.OpBold)
)

const (
	Prompt              = "Enter Nickname: "
	NoNicknameProvided  = "No nickname provided!"
	NameAssignmentError = "Sorry! No free nickname could be assigned, please reconnect with another one."
)

func style(codes ...color.Color) string {
	return color.StartSet + color.Colors2code(codes...) + "m"
}

// ColorTag returns the 256-color foreground sequence for n.
func ColorTag(n uint8) string {
	return color.StartSet + color.C256(n).String() + "m"
}

// RandomColorTag picks one of the 256 foreground colors.
func RandomColorTag() string {
	return ColorTag(uint8(rand.IntN(256)))
}

func JoinNotice(name string) string {
	return boldGreen + name + " Joined" + Reset
}

func LeftNotice(name string) string {
	return boldRed + name + " left the chat" + Reset
}

func Welcome() string {
	return boldWhite + "Hey, thanks for using our ChatTerm use " + boldYellow + "/help" +
		boldWhite + " to see all commands" + Reset
}

// ChatLine renders "<colorTag>name<reset>: message".
// When at is set the line is prefixed with "> HH:mm | ".
func ChatLine(colorTag, name, message string, at *time.Time) string {
	line := colorTag + name + Reset + ": " + message
	if at == nil {
		return line
	}
	return "> " + bold + at.Format("15:04") + Reset + " | " + line
}

func ListLine(m Member) string {
	return fmt.Sprintf("(%d) | %s%s%s", m.Ping, m.ColorTag, m.Name, Reset)
}

// ListLines renders the live members of a roster in join order.
func ListLines(members []Member) []string {
	alive := lo.Filter(members, func(m Member, _ int) bool {
		return m.Alive
	})
	return lo.Map(alive, func(m Member, _ int) string {
		return ListLine(m)
	})
}

func RenameSucceeded(name string) string {
	return "Successfully changed name to " + name
}

// AutoAssignedNameTaken is sent when the name asked for at handshake is
// still held by someone else, so the session keeps its derived name.
func AutoAssignedNameTaken(requested string) string {
	return boldRed + "Sorry! The username " + requested + " is already taken. You can change your username with " +
		boldYellow + "/nickname" + boldRed + "." + Reset
}

func RequestedNameTaken(requested string) string {
	return boldRed + "Sorry! The username " + requested + " is already taken." + Reset
}

func InvalidName(reason string) string {
	return boldRed + reason + Reset
}

var helpRows = [][]string{
	{"/help", "(to see the help list.)"},
	{"/nickname {new_nickname}", "(to change the nickname.)"},
	{"/leave", "(to leave the chat.)"},
	{"/list", "(to see all users on the server.)"},
}

// HelpLines renders the static command list.
func HelpLines() []string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(true)
	for _, row := range helpRows {
		table.Append([]string{boldCyan + row[0] + Reset, boldWhite + row[1] + Reset})
	}
	table.Render()

	lines := []string{boldWhite + "This is our " + boldGreen + "Helplist" + boldWhite + "!" + Reset}
	for _, l := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		lines = append(lines, strings.TrimRight(l, " "))
	}
	return lines
}
