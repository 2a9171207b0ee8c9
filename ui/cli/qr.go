// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnrobert/gobro/internal/qrgen"
)

// qrCmd is the root command for QR code generation.
var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Generate QR codes (contact vCards, arbitrary text)",
	Long: `The 'qr' command group renders QR code PNGs:
  - vcard encodes a contact as a vCard 3.0 payload
  - text encodes an arbitrary payload`,
}

// qrVcardCmd renders a contact vCard QR code.
var qrVcardCmd = &cobra.Command{
	Use:   "vcard",
	Short: "Generate a vCard QR code for a contact",
	Long: `Encode a contact as a vCard 3.0 payload and render it as a QR code PNG.
The output name defaults to '<first>_<last>.png' when -o is not given.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		contact := qrgen.Contact{}
		contact.FirstName, _ = cmd.Flags().GetString("first")
		contact.LastName, _ = cmd.Flags().GetString("last")
		contact.Org, _ = cmd.Flags().GetString("org")
		contact.Title, _ = cmd.Flags().GetString("title")
		contact.Email, _ = cmd.Flags().GetString("email")
		contact.Tel, _ = cmd.Flags().GetString("tel")

		if contact.FirstName == "" && contact.LastName == "" {
			return fmt.Errorf("--first or --last is required")
		}

		outputFile, _ := cmd.Flags().GetString("out")
		if outputFile == "" {
			parts := []string{}
			if contact.FirstName != "" {
				parts = append(parts, strings.ToLower(contact.FirstName))
			}
			if contact.LastName != "" {
				parts = append(parts, strings.ToLower(contact.LastName))
			}
			outputFile = strings.Join(parts, "_") + ".png"
		}

		size, color := qrRenderOptions(cmd)
		if err := qrgen.WritePNG(contact.VCard(), outputFile, size, color); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
		fmt.Printf("QR code written to %s\n", outputFile)
		return nil
	},
}

// qrTextCmd renders an arbitrary payload QR code.
var qrTextCmd = &cobra.Command{
	Use:     "text <payload>",
	Short:   "Generate a QR code for an arbitrary payload",
	Long:    `Render any text payload (a URL, a Wi-Fi string, free text) as a QR code PNG.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, _ := cmd.Flags().GetString("out")
		if outputFile == "" {
			outputFile = "qr.png"
		}

		size, color := qrRenderOptions(cmd)
		if err := qrgen.WritePNG(args[0], outputFile, size, color); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
		fmt.Printf("QR code written to %s\n", outputFile)
		return nil
	},
}

// qrRenderOptions resolves size and color from flags with config fallback.
func qrRenderOptions(cmd *cobra.Command) (int, string) {
	size, _ := cmd.Flags().GetInt("size")
	if size <= 0 {
		size = appConfig.QR.Size
	}
	color, _ := cmd.Flags().GetString("color")
	if color == "" {
		color = appConfig.QR.Color
	}
	return size, color
}

func init() {
	qrCmd.AddCommand(qrVcardCmd)
	qrCmd.AddCommand(qrTextCmd)

	qrVcardCmd.Flags().String("first", "", "First name")
	qrVcardCmd.Flags().String("last", "", "Last name")
	qrVcardCmd.Flags().String("org", "", "Organization")
	qrVcardCmd.Flags().String("title", "", "Job title")
	qrVcardCmd.Flags().String("email", "", "Email address")
	qrVcardCmd.Flags().String("tel", "", "Phone number")
	qrVcardCmd.Flags().StringP("out", "o", "", "Output PNG path")
	qrVcardCmd.Flags().Int("size", 0, "Image edge in pixels (defaults from config)")
	qrVcardCmd.Flags().String("color", "", "Foreground color as #RRGGBB (defaults from config)")

	qrTextCmd.Flags().StringP("out", "o", "", "Output PNG path (default qr.png)")
	qrTextCmd.Flags().Int("size", 0, "Image edge in pixels (defaults from config)")
	qrTextCmd.Flags().String("color", "", "Foreground color as #RRGGBB (defaults from config)")
}
