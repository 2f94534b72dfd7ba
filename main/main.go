package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"image/png"
	"log"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/gcfg.v1"

	"github.com/nanovis/steric"
	"github.com/nanovis/steric/overlay"
)

func main() {
	var (
		detect        string
		exampleConfig string
	)

	flag.StringVar(
		&detect, "Detect", "",
		"Configuration file for [Detect] mode.",
	)
	flag.StringVar(
		&exampleConfig, "ExampleConfig", "",
		"Prints an example configuration file of the given type. "+
			"Supported: 'Detect'.",
	)
	flag.Parse()

	if exampleConfig != "" {
		switch exampleConfig {
		case "Detect":
			fmt.Println(ExampleDetectFile)
		default:
			log.Fatalf("Unrecognized config type '%s'.", exampleConfig)
		}
		return
	}
	if detect == "" {
		log.Fatal("Must supply a -Detect configuration file.")
	}

	wrap := DefaultDetectWrapper()
	if err := gcfg.ReadFileInto(wrap, detect); err != nil {
		log.Fatal(err.Error())
	}
	con := &wrap.Detect

	if !con.ValidSceneFile() {
		log.Fatal("Invalid/non-existent 'SceneFile' value.")
	} else if !con.ValidOutputImage() {
		log.Fatal("Invalid/non-existent 'OutputImage' value.")
	} else if !con.ValidImageSize() {
		log.Fatal("Invalid 'ImageWidth'/'ImageHeight' values.")
	} else if !con.ValidMarkerMode() {
		log.Fatal("Invalid 'MarkerMode' value (use 'X' or 'O').")
	}

	detectMain(con)
}

func detectMain(con *DetectConfig) {
	logger := golog.NewDevelopmentLogger("steric")
	ctx := context.Background()

	comps, err := readScene(con.SceneFile)
	if err != nil {
		logger.Fatalw("reading scene", "file", con.SceneFile, "error", err)
	}

	registered := make([]steric.Component, len(comps))
	for i, c := range comps {
		registered[i] = c
	}

	mode := overlay.ModeX
	if con.MarkerMode == "O" {
		mode = overlay.ModeO
	}
	render := overlay.Params{
		Radius:    con.MarkerRadius,
		Mode:      mode,
		Color:     color.RGBA{R: 0xff, G: 0x2a, B: 0x2a, A: 0xff},
		Opacity:   con.MarkerOpacity,
		Thickness: con.MarkerThickness,
	}

	session, err := steric.NewSession(
		registered, steric.CollisionParams{Lenience: con.Lenience},
		&render, logger,
	)
	if err != nil {
		logger.Fatalw("creating session", "error", err)
	}
	defer session.Dispose()

	if err := session.Start(ctx); err != nil {
		logger.Fatalw("starting session", "error", err)
	}

	if con.MoveComponent >= 0 {
		if con.MoveComponent >= len(comps) {
			logger.Fatalw("MoveComponent out of range",
				"index", con.MoveComponent, "components", len(comps))
		}
		job := session.UpdateComponent(
			registered[con.MoveComponent],
			mgl64.Translate3D(con.MoveX, con.MoveY, con.MoveZ),
		)
		if err := job.Wait(ctx); err != nil {
			logger.Fatalw("moving component", "error", err)
		}
	}

	mask, err := session.ReadCollisions(ctx)
	if err != nil {
		logger.Fatalw("reading collisions", "error", err)
	}
	logger.Infow("detection complete",
		"components", len(comps), "collidingAtoms", mask.Count())

	img, err := session.RenderMarkers(
		ctx, con.ImageWidth, con.ImageHeight, sceneView(comps),
	)
	if err != nil {
		logger.Fatalw("rendering markers", "error", err)
	}

	f, err := os.Create(con.OutputImage)
	if err != nil {
		logger.Fatalw("creating output image", "error", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		logger.Fatalw("encoding output image", "error", err)
	}
	logger.Infow("wrote marker overlay", "file", con.OutputImage)
}

// sceneView returns an orthographic projection, looking down -z, wide
// enough to hold every atom with a small margin.
func sceneView(comps []*sceneComponent) mgl64.Mat4 {
	lo := math.Inf(+1)
	hi := math.Inf(-1)
	for _, c := range comps {
		for _, a := range c.atoms {
			for _, v := range a.Pos {
				lo = math.Min(lo, v-a.Radius)
				hi = math.Max(hi, v+a.Radius)
			}
		}
	}
	if lo > hi {
		lo, hi = -1, 1
	}
	pad := (hi - lo) * 0.05
	return mgl64.Ortho(lo-pad, hi+pad, lo-pad, hi+pad, lo-pad, hi+pad)
}
