package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ldco/Kroma-sub000/internal/domain"
	"github.com/ldco/Kroma-sub000/internal/infra"
	"github.com/ldco/Kroma-sub000/internal/pipeline"
	"github.com/ldco/Kroma-sub000/internal/postprocess"
	"github.com/ldco/Kroma-sub000/internal/runlog"
	"github.com/ldco/Kroma-sub000/internal/settings"
	"github.com/ldco/Kroma-sub000/internal/storage"
	"github.com/ldco/Kroma-sub000/internal/tooling"
	"github.com/ldco/Kroma-sub000/internal/tooling/hosted"
	"github.com/ldco/Kroma-sub000/internal/tooling/local"
	"github.com/ldco/Kroma-sub000/pkg/zip"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*s = append(*s, v)
	}
	return nil
}

func main() {
	var (
		projectFlag    string
		modeFlag       string
		confirmFlag    bool
		inputFlag      string
		sceneFlags     stringList
		styleFlags     stringList
		stageFlag      string
		timeFlag       string
		weatherFlag    string
		candidatesFlag int
		manifestFlag   string
		jobsFileFlag   string
		largeBatchFlag bool
		syncFlag       bool
		validateFlag   bool
		bundleFlag     string

		upscaleFlag        bool
		upscaleBackendFlag string
		colorFlag          bool
		colorProfileFlag   string
		bgRemoveFlag       bool
		bgBackendFlag      string

		modelFlag   string
		sizeFlag    string
		qualityFlag string
	)

	flag.StringVar(&projectFlag, "project", "", "project slug (required)")
	flag.StringVar(&modeFlag, "mode", "", "execution mode: dry or run (default dry)")
	flag.BoolVar(&confirmFlag, "confirm-spend", false, "acknowledge that run mode spends adapter credits")
	flag.StringVar(&inputFlag, "input", "", "directory of reference images, one job per image")
	flag.Var(&sceneFlags, "scene", "scene reference image (repeatable, alternative to -input)")
	flag.Var(&styleFlags, "style", "style reference image (repeatable)")
	flag.StringVar(&stageFlag, "stage", "", "pipeline stage: style, time or weather (default style)")
	flag.StringVar(&timeFlag, "time", "", "time of day for time/weather stages: day or night")
	flag.StringVar(&weatherFlag, "weather", "", "weather for the weather stage: clear or rain")
	flag.IntVar(&candidatesFlag, "candidates", 0, "candidates to generate per job (default from settings)")
	flag.StringVar(&manifestFlag, "manifest", "", "explicit planning manifest path")
	flag.StringVar(&jobsFileFlag, "jobs-file", "", "precomposed jobs file path")
	flag.BoolVar(&largeBatchFlag, "allow-large-batch", false, "permit job counts above the safe batch limit")
	flag.BoolVar(&syncFlag, "sync", false, "mirror run artifacts to the sync target after a run")
	flag.BoolVar(&validateFlag, "validate", false, "resolve and report the configuration stack without executing")
	flag.StringVar(&bundleFlag, "bundle", "", "after a run, write the final outputs as a zip to this path")

	flag.BoolVar(&upscaleFlag, "upscale", false, "enable the upscale pass")
	flag.StringVar(&upscaleBackendFlag, "upscale-backend", "", "upscale backend: ncnn or python")
	flag.BoolVar(&colorFlag, "color", false, "enable the color grading pass")
	flag.StringVar(&colorProfileFlag, "color-profile", "", "color grading profile")
	flag.BoolVar(&bgRemoveFlag, "bg-remove", false, "enable the background removal pass")
	flag.StringVar(&bgBackendFlag, "bg-backend", "", "background removal backend: rembg, photoroom or removebg")

	flag.StringVar(&modelFlag, "model", "", "override the generation model")
	flag.StringVar(&sizeFlag, "size", "", "override the generation size")
	flag.StringVar(&qualityFlag, "quality", "", "override the generation quality")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "kroma").Logger()

	req := pipeline.Request{
		Project:      projectFlag,
		Mode:         domain.Mode(strings.TrimSpace(strings.ToLower(modeFlag))),
		ConfirmSpend: confirmFlag,
		Options: pipeline.Options{
			InputDir:        inputFlag,
			SceneRefs:       sceneFlags,
			StyleRefs:       styleFlags,
			Stage:           domain.Stage(strings.TrimSpace(strings.ToLower(stageFlag))),
			Time:            domain.TimeOfDay(strings.TrimSpace(strings.ToLower(timeFlag))),
			Weather:         domain.Weather(strings.TrimSpace(strings.ToLower(weatherFlag))),
			Candidates:      candidatesFlag,
			ManifestPath:    manifestFlag,
			JobsFile:        jobsFileFlag,
			AllowLargeBatch: largeBatchFlag,
			Postprocess: postprocess.Toggles{
				Upscale:        upscaleFlag,
				UpscaleBackend: upscaleBackendFlag,
				Color:          colorFlag,
				ColorProfile:   colorProfileFlag,
				BgRemove:       bgRemoveFlag,
				BgBackend:      bgBackendFlag,
			},
			Settings:      overlayFromFlags(modelFlag, sizeFlag, qualityFlag),
			StorageSyncS3: syncFlag,
		},
	}

	tools, adapterName := buildToolchain(cfg, logger)
	deps := pipeline.Deps{
		Logger:      logger,
		Resolver:    settings.Resolver{ConfigRoot: cfg.ConfigRoot, DataRoot: cfg.DataRoot},
		ConfigRoot:  cfg.ConfigRoot,
		BatchLimit:  cfg.SafeBatchLimit,
		Tools:       tools,
		AdapterName: adapterName,
		Syncer: storage.MirrorSyncer{
			Target: filepath.Join(cfg.DataRoot, "sync"),
			Logger: logger,
		},
	}

	ctx := context.Background()

	if validateFlag {
		normalized, err := pipeline.Normalize(req)
		if err != nil {
			exitWithError(err)
		}
		report, err := pipeline.ValidateConfig(deps, normalized)
		if err != nil {
			exitWithError(err)
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			exitWithError(err)
		}
		fmt.Println(string(out))
		return
	}

	svc := &pipeline.Service{Chain: pipeline.NewChain(deps), Logger: logger}
	res, err := svc.Trigger(ctx, req)
	if err != nil {
		var cmdErr *domain.CommandError
		if errors.As(err, &cmdErr) {
			if cmdErr.Stdout != "" {
				fmt.Print(cmdErr.Stdout)
			}
			if cmdErr.Stderr != "" {
				fmt.Fprintln(os.Stderr, strings.TrimRight(cmdErr.Stderr, "\n"))
			}
			os.Exit(cmdErr.StatusCode)
		}
		exitWithError(err)
	}

	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintln(os.Stderr, strings.TrimRight(res.Stderr, "\n"))
	}

	if bundleFlag != "" {
		if err := writeBundle(res.Stdout, bundleFlag); err != nil {
			fmt.Fprintf(os.Stderr, "bundle: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bundle: %s\n", bundleFlag)
	}
}

func overlayFromFlags(model, size, quality string) settings.Overlay {
	var ov settings.Overlay
	if v := strings.TrimSpace(model); v != "" {
		ov.Model = &v
	}
	if v := strings.TrimSpace(size); v != "" {
		ov.Size = &v
	}
	if v := strings.TrimSpace(quality); v != "" {
		ov.Quality = &v
	}
	return ov
}

// writeBundle zips every finalized output named by the run log into a single
// archive at dest.
func writeBundle(stdout, dest string) error {
	logPath, ok := runlog.FindRunLogPath(stdout)
	if !ok {
		return errors.New("no run log path in pipeline output")
	}
	rec, err := runlog.Load(logPath)
	if err != nil {
		return err
	}

	var assets []zip.Asset
	for _, job := range rec.Jobs {
		if job.FinalOutput == nil || *job.FinalOutput == "" {
			continue
		}
		data, err := os.ReadFile(*job.FinalOutput)
		if err != nil {
			return fmt.Errorf("read %s: %w", *job.FinalOutput, err)
		}
		assets = append(assets, zip.Asset{
			Filename: filepath.Base(*job.FinalOutput),
			Data:     data,
		})
	}
	if len(assets) == 0 {
		return errors.New("run produced no finalized outputs to bundle")
	}

	raw := zip.ArchiveAssets(assets)
	if raw == nil {
		return errors.New("failed to assemble archive")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, raw, 0o644)
}

// buildToolchain mirrors the API server's adapter wiring: local adapters back
// every contract, hosted clients take over where their API keys are present.
func buildToolchain(cfg *infra.Config, logger infra.Logger) (tooling.Toolchain, string) {
	lc := local.New(logger)
	tools := tooling.Toolchain{
		Generator: lc,
		Upscaler: tooling.NewMuxUpscaler(map[string]tooling.Upscaler{
			"ncnn":   lc,
			"python": lc,
		}),
		Color:    lc,
		Quality:  lc,
		Archiver: lc,
	}
	adapterName := "local"

	var refiner *hosted.OpenAIRefiner
	if cfg.OpenAIAPIKey != "" {
		gen, err := hosted.NewOpenAIImageClient(hosted.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			exitWithError(err)
		}
		tools.Generator = gen
		adapterName = "openai"

		refiner, err = hosted.NewOpenAIRefiner(hosted.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			exitWithError(err)
		}
	}

	bgBackends := map[string]tooling.BackgroundRemover{"rembg": lc}
	if cfg.PhotoroomAPIKey != "" {
		client, err := hosted.NewPhotoroomClient(hosted.BgRemovalOptions{
			APIKey:  cfg.PhotoroomAPIKey,
			BaseURL: cfg.PhotoroomBaseURL,
			Refiner: refiner,
		})
		if err != nil {
			exitWithError(err)
		}
		bgBackends["photoroom"] = client
	}
	if cfg.RemoveBgAPIKey != "" {
		client, err := hosted.NewRemoveBgClient(hosted.BgRemovalOptions{
			APIKey:  cfg.RemoveBgAPIKey,
			BaseURL: cfg.RemoveBgBaseURL,
			Refiner: refiner,
		})
		if err != nil {
			exitWithError(err)
		}
		bgBackends["removebg"] = client
	}
	tools.BgRemover = tooling.NewMuxBgRemover(bgBackends)

	return tools, adapterName
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "kroma: %v\n", err)
	os.Exit(1)
}
