package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/mailgate/internal/content"
	"github.com/shineum/mailgate/internal/email"
	"github.com/shineum/mailgate/internal/layout"
)

var (
	renderTemplate  string
	renderHTML      bool
	renderRoundTrip bool
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render markdown or HTML through the content pipeline",
	Long: `Render a message body the way the gateway would and print the
final HTML. Reads stdin when no file is given.

Example:
  mailgate render notice.md --template metaspexet
  mailgate render page.html --html --roundtrip`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			input []byte
			err   error
		)
		if len(args) == 1 {
			input, err = os.ReadFile(args[0])
		} else {
			input, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		out, err := render(string(input), renderTemplate, renderHTML, renderRoundTrip)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", string(email.TemplateDefault), "template to wrap the body in (default, metaspexet, none)")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "treat input as HTML instead of markdown")
	renderCmd.Flags().BoolVar(&renderRoundTrip, "roundtrip", false, "convert HTML input through markdown, as the current API does")
}

// render runs input through content resolution and template wrapping
// using the bundled skeletons.
func render(input, templateName string, isHTML, roundTrip bool) (string, error) {
	tmpl, err := email.ParseTemplate(templateName)
	if err != nil {
		return "", err
	}

	layouts, err := layout.Load(layout.Bundled())
	if err != nil {
		return "", fmt.Errorf("failed to load templates: %w", err)
	}

	mode := content.HTMLVerbatim
	if roundTrip {
		mode = content.HTMLRoundTrip
	}

	var body string
	if isHTML {
		body, err = content.NewResolver().Resolve(nil, &input, mode)
	} else {
		body, err = content.NewResolver().Resolve(&input, nil, mode)
	}
	if err != nil {
		return "", err
	}

	return layouts.Wrap(body, tmpl)
}
