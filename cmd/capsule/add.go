package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addAudio string

var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Capture a note",
	Long: `Capture a note. The text is classified as Todo, Schedule, Finance or Idea
from its keywords and any date it mentions.
With --audio, the file is transcribed first; this needs CAPSULE_API_KEY.`,
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" && addAudio == "" {
			fmt.Println("Error: text or --audio is required")
			cmd.Usage()
			return
		}

		v := openVault()
		defer v.Close()

		if addAudio != "" {
			client := v.llmClient()
			if client == nil {
				fatal("Cannot transcribe", fmt.Errorf("set CAPSULE_API_KEY to enable audio notes"))
			}
			transcript, err := client.Transcribe(cmd.Context(), addAudio)
			if err != nil {
				fatal("Transcription failed", err)
			}
			text = strings.TrimSpace(transcript)
			fmt.Printf("Transcribed: %s\n", text)
		}

		rec, err := v.Svc.Capture(cmd.Context(), text)
		if err != nil {
			fatal("Failed to capture note", err)
		}

		fmt.Printf("[%s] %s (%s)\n", rec.Category, rec.Content, rec.ID)
		if rec.TargetTime != nil {
			fmt.Printf("  target: %s\n", rec.TargetTime.Format("2006-01-02 15:04"))
		}
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addAudio, "audio", "", "Audio file to transcribe and capture")
}
