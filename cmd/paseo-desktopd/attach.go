package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paseo-app/desktopd/internal/config"
	"github.com/paseo-app/desktopd/internal/control"
)

var (
	attachID  string
	attachExt string
	attachOut string
	gcRefs    []string
)

// newControlClient resolves the control socket path from the config file and
// returns a client for it.
func newControlClient() (*control.Client, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return control.NewClient(cfg.SocketPath), nil
}

func newAttachCmd() *cobra.Command {
	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Manage stored attachments",
		Long: `Store, read, and clean up attachment files through the running daemon.

Attachments live in a single managed directory, one file per id. Writing
an id replaces whatever file that id had before, regardless of extension.

Examples:
  paseo-desktopd attach write photo.png --id avatar
  paseo-desktopd attach copy ~/Downloads/report.pdf
  paseo-desktopd attach read <path> --out report.pdf
  paseo-desktopd attach delete <path>
  paseo-desktopd attach gc --ref avatar --ref report`,
	}

	writeCmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Store a file's content under an id",
		Long: `Store the content of a local file (or stdin with "-") as an attachment.

The id defaults to a random UUID. The extension defaults to the source
file's extension.`,
		Args: cobra.ExactArgs(1),
		RunE: runAttachWrite,
	}
	writeCmd.Flags().StringVar(&attachID, "id", "", "attachment id (default: random UUID)")
	writeCmd.Flags().StringVar(&attachExt, "ext", "", "file extension, without the dot")
	attachCmd.AddCommand(writeCmd)

	copyCmd := &cobra.Command{
		Use:   "copy <source>",
		Short: "Copy an existing file into the store",
		Long: `Copy a file into the store by path. The daemon reads the source itself,
so the path must be reachable from the daemon process.`,
		Args: cobra.ExactArgs(1),
		RunE: runAttachCopy,
	}
	copyCmd.Flags().StringVar(&attachID, "id", "", "attachment id (default: random UUID)")
	copyCmd.Flags().StringVar(&attachExt, "ext", "", "file extension override, without the dot")
	attachCmd.AddCommand(copyCmd)

	readCmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Read a stored attachment",
		Args:  cobra.ExactArgs(1),
		RunE:  runAttachRead,
	}
	readCmd.Flags().StringVarP(&attachOut, "out", "o", "", "write content to this file instead of stdout")
	attachCmd.AddCommand(readCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a stored attachment",
		Args:  cobra.ExactArgs(1),
		RunE:  runAttachDelete,
	}
	attachCmd.AddCommand(deleteCmd)

	gcCmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete attachments whose ids are no longer referenced",
		Long: `Delete every stored file whose id is not in the referenced set.

With no --ref flags the referenced set is empty and every attachment is
deleted.`,
		RunE: runAttachGC,
	}
	gcCmd.Flags().StringArrayVar(&gcRefs, "ref", nil, "referenced id (repeatable)")
	attachCmd.AddCommand(gcCmd)

	return attachCmd
}

func runAttachWrite(cmd *cobra.Command, args []string) error {
	setupLogging()

	var data []byte
	var err error
	source := args[0]
	if source == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	id := attachID
	if id == "" {
		id = uuid.NewString()
	}
	ext := attachExt
	if ext == "" && source != "-" {
		ext = strings.TrimPrefix(filepath.Ext(source), ".")
	}

	client, err := newControlClient()
	if err != nil {
		return err
	}
	info, err := client.WriteAttachment(id, base64.StdEncoding.EncodeToString(data), ext)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %s (%d bytes)\n", id, info.ByteSize)
	fmt.Println(info.Path)
	return nil
}

func runAttachCopy(cmd *cobra.Command, args []string) error {
	setupLogging()

	source, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve source path: %w", err)
	}

	id := attachID
	if id == "" {
		id = uuid.NewString()
	}

	client, err := newControlClient()
	if err != nil {
		return err
	}
	info, err := client.CopyAttachment(id, source, attachExt)
	if err != nil {
		return err
	}

	fmt.Printf("Stored %s (%d bytes)\n", id, info.ByteSize)
	fmt.Println(info.Path)
	return nil
}

func runAttachRead(cmd *cobra.Command, args []string) error {
	setupLogging()

	client, err := newControlClient()
	if err != nil {
		return err
	}
	payload, err := client.ReadAttachment(args[0])
	if err != nil {
		return err
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if attachOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(attachOut, data, 0600)
}

func runAttachDelete(cmd *cobra.Command, args []string) error {
	setupLogging()

	client, err := newControlClient()
	if err != nil {
		return err
	}
	deleted, err := client.DeleteAttachment(args[0])
	if err != nil {
		return err
	}

	if deleted {
		fmt.Println("Deleted.")
	} else {
		fmt.Println("Nothing to delete.")
	}
	return nil
}

func runAttachGC(cmd *cobra.Command, args []string) error {
	setupLogging()

	client, err := newControlClient()
	if err != nil {
		return err
	}
	collected, err := client.CollectAttachments(gcRefs)
	if err != nil {
		return err
	}

	fmt.Printf("Collected %d attachment(s).\n", collected)
	return nil
}
