package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gitzhang10/tpmchain/audit"
	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/ledger"
	"github.com/gitzhang10/tpmchain/service"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configName string
	jsonOutput bool
)

// errInternal makes the process exit with status 1 after the report is printed.
var errInternal = errors.New("internal consensus error")

func init() {
	rootCmd.PersistentFlags().StringVarP(&configName, "config", "c", "config", "name of the configuration file in the working directory, without extension")
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	rootCmd.AddCommand(verifyCmd)
}

var rootCmd = &cobra.Command{
	Use:           "tpmchain",
	Short:         "Agree on file digests among simulated TPM nodes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Submit files to consensus and record the agreed digests",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(configName)
		if err != nil {
			return err
		}
		s, err := service.New(conf)
		if err != nil {
			return err
		}
		return verify(cmd.Context(), s, args)
	},
}

func loadConfig(name string) (*config.Config, error) {
	conf, err := config.LoadConfig("", name)
	if err == nil {
		return conf, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		if !jsonOutput {
			pterm.Warning.Printfln("No %s file found, using the default node set", name)
		}
		return config.Default(), nil
	}
	return nil, err
}

type fileReport struct {
	File   string                     `json:"file"`
	Result service.VerificationResult `json:"result"`
}

type report struct {
	Files     []fileReport   `json:"files"`
	Audit     []audit.Entry  `json:"audit"`
	Tampered  int            `json:"tampered"`
	Chain     []ledger.Block `json:"chain"`
	ChainOK   bool           `json:"chainOk"`
	ChainFail string         `json:"chainError,omitempty"`
}

func verify(ctx context.Context, s *service.IntegrityService, files []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logs := audit.NewStore()
	var rep report
	internal := false

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		res := s.Submit(ctx, data)
		logs.Append(audit.NewEntry(filepath.Base(file), res.Hash, res.Valid))
		rep.Files = append(rep.Files, fileReport{File: file, Result: res})
		if res.Internal() {
			internal = true
		}
		if jsonOutput {
			continue
		}
		if res.Valid {
			pterm.Success.Printfln("%s: agreed on %s", file, shortHash(res.Hash))
		} else {
			pterm.Error.Printfln("%s: %s", file, res.Error)
		}
	}

	rep.Audit = logs.List()
	rep.Tampered = len(logs.Tampered())
	rep.Chain = s.Chain()
	rep.ChainOK = true
	if err := s.VerifyChain(); err != nil {
		rep.ChainOK = false
		rep.ChainFail = err.Error()
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printChain(rep)
	}
	if internal {
		return errInternal
	}
	return nil
}

func printChain(rep report) {
	if rep.Tampered > 0 {
		pterm.Warning.Printfln("%d of %d files were not agreed on", rep.Tampered, len(rep.Files))
	}
	if len(rep.Chain) == 0 {
		pterm.Info.Println("The ledger is empty")
	} else {
		data := pterm.TableData{{"Index", "Hash", "Prepare", "Commit", "Signature", "Block hash"}}
		for _, b := range rep.Chain {
			data = append(data, []string{
				strconv.Itoa(b.Index),
				shortHash(b.Hash),
				fmt.Sprintf("%d/%d", b.Approvals.Prepare, b.Approvals.TotalNodes),
				fmt.Sprintf("%d/%d", b.Approvals.Commit, b.Approvals.TotalNodes),
				shortHash(base64.StdEncoding.EncodeToString(b.Signature)),
				shortHash(b.BlockHash),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	if rep.ChainOK {
		pterm.Success.Println("Ledger verified")
	} else {
		pterm.Error.Printfln("Ledger verification failed: %s", rep.ChainFail)
	}
}

func shortHash(s string) string {
	if len(s) > 16 {
		return s[:16] + "…"
	}
	return s
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInternal) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}
