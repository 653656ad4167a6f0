package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/earshot/earshot/internal/config"
	"github.com/earshot/earshot/internal/models"
)

var modelsLarge bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the language model store",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed models and downloadable languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsList()
	},
}

var modelsGetCmd = &cobra.Command{
	Use:   "get LANG|URL",
	Short: "Download a language model into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsGet(args[0])
	},
}

var modelsRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove an installed model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelsRm(args[0])
	},
}

func init() {
	modelsGetCmd.Flags().BoolVar(&modelsLarge, "large", false, "prefer the large model variant")
	modelsCmd.AddCommand(modelsListCmd, modelsGetCmd, modelsRmCmd)
	rootCmd.AddCommand(modelsCmd)
}

func openStore() (*models.Store, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return models.NewStore(cfg.Models.Dir)
}

func runModelsList() error {
	store, err := openStore()
	if err != nil {
		return err
	}

	installed, err := store.Installed()
	if err != nil {
		return err
	}
	sort.Strings(installed)

	fmt.Printf("Store: %s\n\n", store.Dir())
	if len(installed) == 0 {
		fmt.Println("No models installed.")
	} else {
		fmt.Println("Installed:")
		for _, name := range installed {
			fmt.Printf("  %s\n", name)
		}
	}

	available := models.Languages()
	sort.Strings(available)
	fmt.Printf("\nDownloadable languages: %s\n", strings.Join(available, ", "))
	return nil
}

func runModelsGet(arg string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	url := arg
	if !strings.Contains(arg, "://") {
		url = models.URLForLanguage(arg, !modelsLarge)
		if url == "" {
			return fmt.Errorf("no default model available for language %q", arg)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	progress := make(chan models.Progress, 1)
	go printProgress(progress)

	path, err := store.Ensure(ctx, url, progress)
	close(progress)
	if err != nil {
		return err
	}

	fmt.Printf("\nInstalled at %s\n", path)
	return nil
}

func printProgress(ch <-chan models.Progress) {
	for p := range ch {
		if p.Done {
			continue
		}
		if p.Total > 0 {
			fmt.Printf("\rDownloading %s: %d%% (%d/%d bytes)", p.Name, p.Downloaded*100/p.Total, p.Downloaded, p.Total)
		} else {
			fmt.Printf("\rDownloading %s: %d bytes", p.Name, p.Downloaded)
		}
	}
}

func runModelsRm(name string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	if !store.IsInstalled(name) {
		return fmt.Errorf("model %q is not installed", name)
	}
	if err := store.Remove(name); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", name)
	return nil
}
