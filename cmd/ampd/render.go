package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ampd/internal/engine"
	"ampd/internal/render"
	"ampd/pkg/types"
)

func buildRenderCmd(flags *rootFlags) *cobra.Command {
	var (
		inPath  string
		outPath string
		modelA  string
		modelB  string
		altA    string
		altB    string
		irA     string
		irB     string
		blend   float64
		mix     float64
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Process a WAV file offline through the full chain",
		Example: "  ampd render --in di.wav --out amped.wav --model-a twin.nam --ir-a cab.wav\n" +
			"  ampd render --in di.wav --out blend.wav --model-a clean.nam --model-b lead.nam --blend 0.3",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("render requires --in and --out")
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			eng := engine.New(engine.Config{
				SampleRate: cfg.SampleRate,
				BlockSize:  cfg.BlockSize,
				Blend:      blend,
				Mix:        mix,
				Logger:     &log,
			})
			defer eng.Close()

			paths := map[types.ResourceID]string{
				types.ModelA:    modelA,
				types.ModelB:    modelB,
				types.AltModelA: altA,
				types.AltModelB: altB,
				types.IRA:       irA,
				types.IRB:       irB,
			}
			if err := render.Prepare(eng, paths); err != nil {
				return err
			}
			for _, rs := range eng.Resources() {
				if want := paths[rs.ID]; want != "" && want != types.Sentinel && !rs.Active {
					return fmt.Errorf("resource %s failed to load from %s", rs.ID, want)
				}
			}
			if err := render.File(eng, inPath, outPath); err != nil {
				return err
			}
			log.Info().Str("in", inPath).Str("out", outPath).Uint64("blocks", eng.Blocks()).Msg("render complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "Input WAV file")
	cmd.Flags().StringVar(&outPath, "out", "", "Output WAV file")
	cmd.Flags().StringVar(&modelA, "model-a", "", "Primary model for slot A (.nam)")
	cmd.Flags().StringVar(&modelB, "model-b", "", "Primary model for slot B (.nam)")
	cmd.Flags().StringVar(&altA, "alt-model-a", "", "Alt model for slot A (.json/.aidax)")
	cmd.Flags().StringVar(&altB, "alt-model-b", "", "Alt model for slot B (.json/.aidax)")
	cmd.Flags().StringVar(&irA, "ir-a", "", "Impulse response for slot A (.wav)")
	cmd.Flags().StringVar(&irB, "ir-b", "", "Impulse response for slot B (.wav)")
	cmd.Flags().Float64Var(&blend, "blend", 0.5, "Model A/B cross-fade, 0..1")
	cmd.Flags().Float64Var(&mix, "mix", 0.5, "IR A/B cross-fade, 0..1")
	return cmd
}
