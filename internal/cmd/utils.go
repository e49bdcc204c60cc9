package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/autosysadmin/console-cli/internal/alert"
)

func promptInput(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}

	reader := bufio.NewReader(os.Stdin)
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// printCurrentAlert renders the live alert, if any, in severity colors.
func printCurrentAlert(app *App) {
	a := app.Alerts.Current()
	if a == nil {
		return
	}
	switch a.Severity {
	case alert.SeveritySuccess:
		color.New(color.FgGreen).Printf("✅ %s\n", a.Message)
	case alert.SeverityError:
		color.New(color.FgRed).Printf("❌ %s\n", a.Message)
	case alert.SeverityWarning:
		color.New(color.FgYellow).Printf("⚠️  %s\n", a.Message)
	default:
		fmt.Println(a.Message)
	}
}
