package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eringen/promptgallery"
	"github.com/eringen/promptgallery/catalog"
)

var samplePrompts = []catalog.NewPrompt{
	{
		Title:         "Neon Rain Over Shinjuku",
		Description:   "Cyberpunk street scene at night",
		Prompt:        "A rain-soaked Tokyo alley at night, neon signs reflecting in puddles, cinematic lighting, 35mm film grain, shallow depth of field",
		Tags:          []string{"cyberpunk", "city", "night"},
		CreatorHandle: "neonwalker",
	},
	{
		Title:         "Alpine Lake at Dawn",
		Description:   "Calm landscape with mist",
		Prompt:        "A glacial lake surrounded by pine forest at dawn, low mist over the water, soft pastel sky, ultra detailed landscape photography",
		Tags:          []string{"landscape", "nature", "photography"},
		CreatorHandle: "trailhead",
	},
	{
		Title:         "Clockwork Hummingbird",
		Description:   "Steampunk creature study",
		Prompt:        "Macro shot of a brass clockwork hummingbird hovering near a red flower, visible gears, warm studio light, bokeh background",
		Tags:          []string{"steampunk", "macro", "nature"},
		CreatorHandle: "gearsmith",
	},
	{
		Title:         "Portrait in Chiaroscuro",
		Description:   "Baroque-style portrait",
		Prompt:        "Portrait of an elderly fisherman in the style of a baroque oil painting, dramatic chiaroscuro lighting, deep shadows, visible brush strokes",
		Tags:          []string{"portrait", "painting"},
		CreatorHandle: "oldmaster",
	},
	{
		Title:         "Isometric Cozy Library",
		Description:   "Low-poly interior",
		Prompt:        "Isometric 3D render of a cozy library room with a fireplace, floating candles, low-poly style, soft global illumination, pastel colors",
		Tags:          []string{"isometric", "3d", "interior"},
		CreatorHandle: "polybuilder",
		Premium:       true,
	},
}

// runSeed inserts the sample prompts. Without force it does nothing when the
// store already holds prompts.
func runSeed(force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := promptgallery.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	ctx := context.Background()
	store, err := promptgallery.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	n, err := seedPrompts(ctx, store, force)
	if err != nil {
		return err
	}
	logger.Info("seed complete", zap.Int("inserted", n), zap.String("store", cfg.StoreDriver))
	return nil
}

func seedPrompts(ctx context.Context, store catalog.PromptStore, force bool) (int, error) {
	if !force {
		existing, err := store.ListPrompts(ctx, catalog.Query{Page: 1, PageSize: 1})
		if err != nil {
			return 0, fmt.Errorf("count prompts: %w", err)
		}
		if existing.Total > 0 {
			return 0, nil
		}
	}
	for i, in := range samplePrompts {
		if _, err := store.InsertPrompt(ctx, in); err != nil {
			return i, fmt.Errorf("insert %q: %w", in.Title, err)
		}
	}
	return len(samplePrompts), nil
}
