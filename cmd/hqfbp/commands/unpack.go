package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/marmos91/hqfbp/internal/logger"
	"github.com/marmos91/hqfbp/pkg/deframer"
	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/marmos91/hqfbp/pkg/kiss"
)

var unpackFlags struct {
	outputDir    string
	announcement string
	annSrc       string
	annMsgID     uint32
	showPDUs     bool
}

var unpackCmd = &cobra.Command{
	Use:   "unpack FILE",
	Short: "Reassemble messages from a KISS capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read capture: %w", err)
		}
		frames, err := kiss.Decode(stream)
		if err != nil {
			return fmt.Errorf("decode kiss stream: %w", err)
		}

		d := deframer.New()
		if unpackFlags.announcement != "" {
			d.RegisterAnnouncement(unpackFlags.annSrc, unpackFlags.annMsgID,
				encoding.ParseList(unpackFlags.announcement))
		}

		for _, frame := range frames {
			d.ReceiveBytes(frame)
		}

		messages := 0
		for ev := d.NextEvent(); ev != nil; ev = d.NextEvent() {
			switch e := ev.(type) {
			case deframer.PDUEvent:
				logger.Debug("pdu decoded", logger.PDUBytes(len(e.Payload)))
				if unpackFlags.showPDUs {
					printHeader(e.Header.HumanReadable())
				}
			case deframer.MessageEvent:
				messages++
				name := fmt.Sprintf("message-%03d.bin", messages)
				path := filepath.Join(unpackFlags.outputDir, name)
				if err := os.MkdirAll(unpackFlags.outputDir, 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, e.Payload, 0o644); err != nil {
					return fmt.Errorf("write message: %w", err)
				}
				printHeader(e.Header.HumanReadable())
				fmt.Printf("Wrote %s (%d bytes)\n", path, len(e.Payload))
			}
		}

		logger.Info("unpack finished", "frames", len(frames), "messages", messages)
		if messages == 0 {
			fmt.Println("No messages recovered")
		}
		return nil
	},
}

func printHeader(fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	for _, k := range keys {
		table.Append([]string{k, fields[k]})
	}
	table.Render()
}

func init() {
	f := unpackCmd.Flags()
	f.StringVar(&unpackFlags.outputDir, "output-dir", ".", "directory for recovered messages")
	f.StringVar(&unpackFlags.announcement, "announcement", "", "out-of-band announcement stack in token form")
	f.StringVar(&unpackFlags.annSrc, "announcement-src", "", "source callsign the announcement applies to")
	f.Uint32Var(&unpackFlags.annMsgID, "announcement-msg-id", 0, "message id the announcement applies to")
	f.BoolVar(&unpackFlags.showPDUs, "show-pdus", false, "print the header of every decoded PDU")
}
