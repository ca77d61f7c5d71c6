package main

import (
	"fmt"
	"os"

	"tripweaver/config"
	"tripweaver/itinerary"
	"tripweaver/services"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var payloadPath, outPath, fontPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a plan payload file to PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fontPath == "" {
				if cfg, err := config.Load(); err == nil {
					fontPath = cfg.PDFFontPath
				}
			}
			return exportPlan(payloadPath, outPath, fontPath)
		},
	}
	cmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "plan payload, URL-encoded or plain JSON")
	cmd.Flags().StringVarP(&outPath, "out", "o", "itinerary.pdf", "output PDF path")
	cmd.Flags().StringVar(&fontPath, "font", "", "UTF-8 TrueType font for Hangul (defaults to PDF_FONT_PATH)")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func exportPlan(payloadPath, outPath, fontPath string) error {
	raw, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	plan, err := itinerary.LoadPlan(string(raw))
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", payloadPath, err)
	}

	pdfBytes, err := services.RenderPlanPDF(plan, services.PDFOptions{FontPath: fontPath})
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(pdfBytes))
	return nil
}
