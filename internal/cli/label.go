// Package cli: label.go implements "lotscan label", which fetches label
// data from the inventory API (or registers cartons and units with it) and
// renders printable HTML labels into the output directory.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/config"
	"github.com/mmr-tortoise/lotscan/internal/host"
	"github.com/mmr-tortoise/lotscan/internal/inventory"
	"github.com/mmr-tortoise/lotscan/internal/label"
	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/session"
)

// labelFlags holds the flags shared by every label subcommand.
type labelFlags struct {
	outputDir string
}

func (f *labelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", `Output directory, "-" for stdout (default: from config)`)
}

func (f *labelFlags) saver(cfg *config.Config) host.Saver {
	switch f.outputDir {
	case "-":
		return host.StdoutSaver()
	case "":
		return host.NewDirSaver(cfg.OutputDir)
	default:
		return host.NewDirSaver(f.outputDir)
	}
}

// NewLabelCommand creates the "label" parent command.
func NewLabelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Render printable labels from the inventory API",
		Long: `Render sticker, BIS, mono and master carton labels as HTML pages.

sticker and bis look up an existing device by IMEI. mono and master
register a unit or a carton with the inventory API first and need a
signed-in session (see "lotscan login").`,
	}

	cmd.AddCommand(newStickerCommand())
	cmd.AddCommand(newBISCommand())
	cmd.AddCommand(newMonoCommand())
	cmd.AddCommand(newMasterCommand())
	return cmd
}

func newStickerCommand() *cobra.Command {
	flags := &labelFlags{}
	cmd := &cobra.Command{
		Use:   "sticker <imei>",
		Short: "Render the product sticker of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabelLookup(cmd.Context(), flags, args[0], label.KindSticker)
		},
	}
	flags.register(cmd)
	return cmd
}

func newBISCommand() *cobra.Command {
	flags := &labelFlags{}
	cmd := &cobra.Command{
		Use:   "bis <imei>",
		Short: "Render the BIS certification label of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabelLookup(cmd.Context(), flags, args[0], label.KindBIS)
		},
	}
	flags.register(cmd)
	return cmd
}

// runLabelLookup fetches sticker or BIS data for imei and renders it.
func runLabelLookup(ctx context.Context, flags *labelFlags, imei string, kind label.Kind) error {
	imei = strings.TrimSpace(imei)
	if imei == "" {
		return model.NewCLIError(model.ExitValidationError, "IMEI is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, optionalSession())
	if err != nil {
		return err
	}

	var page *label.Page
	switch kind {
	case label.KindSticker:
		product, err := client.Sticker(ctx, imei)
		if err != nil {
			return apiFailure("failed to fetch sticker data", err)
		}
		page, err = label.RenderSticker(product)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to render sticker", err)
		}
	case label.KindBIS:
		bis, err := client.BIS(ctx, imei)
		if err != nil {
			return apiFailure("failed to fetch BIS data", err)
		}
		page, err = label.RenderBIS(bis)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to render BIS label", err)
		}
	default:
		return model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("unsupported label kind %q", kind))
	}

	return saveLabel(ctx, flags.saver(cfg), page)
}

type monoFlags struct {
	labelFlags

	serial   string
	iccid    string
	qrURL    string
	operator string
}

func newMonoCommand() *cobra.Command {
	flags := &monoFlags{}
	cmd := &cobra.Command{
		Use:   "mono",
		Short: "Register a unit with its SIM and render the mono label",
		Long: `Register one unit (serial, SIM ICCID, QR URL, SIM operator) with the
inventory API and render its mono label.

Example:
  lotscan label mono --serial 00049769791 --iccid 8991000900000000001 \
    --qr-url https://example.com/u/00049769791 --operator Jio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMono(cmd.Context(), flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.serial, "serial", "", "11-digit serial number")
	cmd.Flags().StringVar(&flags.iccid, "iccid", "", "SIM ICCID (19-20 characters)")
	cmd.Flags().StringVar(&flags.qrURL, "qr-url", "", "URL encoded in the unit QR code")
	cmd.Flags().StringVar(&flags.operator, "operator", "", "SIM operator")
	return cmd
}

func runMono(ctx context.Context, flags *monoFlags) error {
	req := inventory.MonoRequest{
		Serial:   strings.TrimSpace(flags.serial),
		ICCID:    strings.TrimSpace(flags.iccid),
		QRURL:    strings.TrimSpace(flags.qrURL),
		Operator: strings.TrimSpace(flags.operator),
	}
	if err := req.Validate(); err != nil {
		return model.WrapCLIError(model.ExitValidationError, "invalid mono request", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, sess, err := loadSession()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, sess)
	if err != nil {
		return err
	}

	unit, err := client.SubmitMono(ctx, req)
	if err != nil {
		return apiFailure("mono registration failed", err)
	}
	page, err := label.RenderMono(unit)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render mono label", err)
	}
	return saveLabel(ctx, flags.saver(cfg), page)
}

type masterFlags struct {
	labelFlags

	device   string
	operator string
	lot      int
	nfc      bool
	adaptor  bool
	simCard  bool
	qr       bool
}

func newMasterCommand() *cobra.Command {
	flags := &masterFlags{}
	cmd := &cobra.Command{
		Use:   "master [serials-file]",
		Short: "Register a master carton and render its label",
		Long: `Register a master carton of scanned serials with the inventory API and
render the carton label. Serials are read one per line, or as a lot
listing, from the file or from stdin. A listing with several lots needs
--lot to pick one.

Examples:
  lotscan label master --device D200 --operator Airtel --nfc serials.txt
  lotscan label master --device D200 --operator Jio --lot 3 listing.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return model.WrapCLIError(model.ExitGeneralError, "cannot open serials file", err)
				}
				defer f.Close()
				in = f
			} else if len(args) == 0 && !stdinIsPipe() {
				return model.NewCLIError(model.ExitValidationError, "no serials: pass a file or pipe them on stdin")
			}
			return runMaster(cmd.Context(), in, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.device, "device", "", "Device model")
	cmd.Flags().StringVar(&flags.operator, "operator", "", "SIM operator")
	cmd.Flags().IntVar(&flags.lot, "lot", 0, "Lot number to use from a lot listing")
	cmd.Flags().BoolVar(&flags.nfc, "nfc", false, "NFC enabled")
	cmd.Flags().BoolVar(&flags.adaptor, "adaptor", false, "Adaptor included")
	cmd.Flags().BoolVar(&flags.simCard, "sim-card", false, "SIM card included")
	cmd.Flags().BoolVar(&flags.qr, "qr", false, "QR enabled")
	return cmd
}

func runMaster(ctx context.Context, in io.Reader, flags *masterFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to read serials", err)
	}
	serials, err := cartonSerials(string(data), cfg.LotSize, flags.lot)
	if err != nil {
		return err
	}
	VerboseLog("Carton of %d serials", len(serials))

	req := inventory.MasterRequest{
		Device:          strings.TrimSpace(flags.device),
		Operator:        strings.TrimSpace(flags.operator),
		Serials:         serials,
		NFCEnabled:      flags.nfc,
		AdaptorIncluded: flags.adaptor,
		SIMCardIncluded: flags.simCard,
		QREnabled:       flags.qr,
	}
	if err := req.Validate(); err != nil {
		return model.WrapCLIError(model.ExitValidationError, "invalid master carton", err)
	}

	_, sess, err := loadSession()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, sess)
	if err != nil {
		return err
	}

	carton, err := client.SubmitMaster(ctx, req)
	if err != nil {
		return apiFailure("master carton registration failed", err)
	}
	page, err := label.RenderMaster(carton)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render master label", err)
	}
	return saveLabel(ctx, flags.saver(cfg), page)
}

// cartonSerials extracts the serials of one carton from text: either a lot
// listing (lot pick, or its only lot) or serial lines that must fit in a
// single lot of lotSize.
func cartonSerials(text string, lotSize, pick int) ([]string, error) {
	if lot.LooksLikeListing(text) {
		lots, err := lot.ParseListing(text)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitValidationError, "invalid lot listing", err)
		}
		return pickLot(lots, pick)
	}

	cfg := lot.DefaultConfig()
	cfg.Kind = model.KindSerial
	cfg.MaxSize = lotSize
	sess, err := lot.NewSession(cfg)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid lot rules", err)
	}
	final, rejections, err := lot.Feed(sess, strings.NewReader(text))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to read serials", err)
	}
	if len(rejections) > 0 {
		msgs := make([]string, 0, len(rejections))
		for _, r := range rejections {
			msgs = append(msgs, r.String())
		}
		return nil, model.WrapCLIError(model.ExitValidationError, "invalid serials",
			fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}

	lots := final.Lots()
	switch len(lots) {
	case 0:
		return nil, model.NewCLIError(model.ExitValidationError,
			"No Serials scanned. Please scan at least one Serial before submitting.")
	case 1:
		return lots[0].Tokens, nil
	default:
		return nil, model.NewCLIError(model.ExitValidationError,
			fmt.Sprintf("too many serials for one carton (lot size %d)", lotSize))
	}
}

func pickLot(lots []lot.Lot, pick int) ([]string, error) {
	if pick == 0 {
		if len(lots) != 1 {
			return nil, model.NewCLIError(model.ExitValidationError,
				fmt.Sprintf("listing holds %d lots, choose one with --lot", len(lots)))
		}
		return lots[0].Tokens, nil
	}
	for _, l := range lots {
		if l.Number == pick {
			return l.Tokens, nil
		}
	}
	return nil, model.NewCLIError(model.ExitValidationError, fmt.Sprintf("LOT %d is not in the listing", pick))
}

// optionalSession returns the stored session, or nil when signed out.
func optionalSession() *session.Session {
	_, sess, err := loadSession()
	if err != nil {
		VerboseLog("Continuing without session: %v", err)
		return nil
	}
	return sess
}

func saveLabel(ctx context.Context, saver host.Saver, page *label.Page) error {
	path, err := label.Save(ctx, saver, page)
	if err != nil {
		return model.WrapCLIError(model.ExitPersistenceError, "failed to save label", err)
	}
	if path == "-" {
		return nil
	}
	if IsJSONOutput() {
		return printJSON(map[string]any{"kind": page.Kind, "file": page.FileName, "path": path})
	}
	fmt.Printf("Saved %s label to %s\n", page.Kind, path)
	return nil
}
