package commands

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/hqfbp/internal/logger"
	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/marmos91/hqfbp/pkg/generator"
	"github.com/marmos91/hqfbp/pkg/header"
	"github.com/marmos91/hqfbp/pkg/kiss"
)

var packFlags struct {
	srcCallsign    string
	dstCallsign    string
	encodings      string
	annEncodings   string
	maxPayloadSize int
	msgID          uint32
	output         string
}

var packCmd = &cobra.Command{
	Use:   "pack FILE",
	Short: "Pack a file into KISS-framed HQFBP PDUs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}

		opts := generator.Options{
			SrcCallsign:    pick(packFlags.srcCallsign, cfg.Sender.SrcCallsign),
			DstCallsign:    pick(packFlags.dstCallsign, cfg.Sender.DstCallsign),
			MaxPayloadSize: packFlags.maxPayloadSize,
			StartMessageID: packFlags.msgID,
		}
		if opts.MaxPayloadSize == 0 {
			opts.MaxPayloadSize = cfg.Sender.MaxPayloadSize.Int()
		}
		if s := pick(packFlags.encodings, cfg.Sender.Encodings); s != "" {
			opts.Encodings = encoding.ParseList(s)
		}
		if s := pick(packFlags.annEncodings, cfg.Sender.AnnouncementEncodings); s != "" {
			opts.Announcement = encoding.ParseList(s)
		}
		if opts.StartMessageID == 0 {
			opts.StartMessageID = cfg.Sender.StartMessageID
		}

		var media *header.MediaType
		if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
			m := header.NamedMedia(mt)
			media = &m
		}

		gen := generator.New(opts)
		pdus, err := gen.Generate(data, media)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}

		outPath := packFlags.output
		if outPath == "" {
			outPath = path + ".kiss"
		}
		out, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()

		for _, pdu := range pdus {
			if _, err := out.Write(kiss.Encode(pdu)); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		}

		stats := gen.LastHeaderStats()
		logger.Info("packed file",
			logger.File(path),
			logger.Size(len(data)),
			logger.SrcCallsign(opts.SrcCallsign),
			logger.Stack(gen.ResolveEncodings().String()),
			"pdus", len(pdus),
			"header_min", stats.Min,
			"header_max", stats.Max,
			"header_total", stats.Total,
		)
		fmt.Printf("Packed %d frames of %s into %s\n", len(pdus), path, outPath)
		return nil
	},
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func init() {
	f := packCmd.Flags()
	f.StringVar(&packFlags.srcCallsign, "src-callsign", "", "source callsign")
	f.StringVar(&packFlags.dstCallsign, "dst-callsign", "", "destination callsign")
	f.StringVar(&packFlags.encodings, "encodings", "", "comma-separated encoding stack (e.g. \"crc32,h\")")
	f.StringVar(&packFlags.annEncodings, "ann-encodings", "", "announcement encoding stack")
	f.IntVar(&packFlags.maxPayloadSize, "max-payload-size", 0, "maximum payload size per PDU")
	f.Uint32Var(&packFlags.msgID, "msg-id", 0, "starting message id")
	f.StringVar(&packFlags.output, "output", "", "output KISS file (default: FILE.kiss)")
}
