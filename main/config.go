package main

import (
	"os"
)

// DetectConfig configures one collision-detection run.
type DetectConfig struct {
	// SceneFile, Lenience, and OutputImage are required.
	SceneFile   string
	Lenience    float64
	OutputImage string

	ImageWidth  int
	ImageHeight int

	MarkerMode      string
	MarkerRadius    float64
	MarkerThickness float64
	MarkerOpacity   float64

	// MoveComponent optionally translates one component (by index, in
	// registration order) before the final readback, exercising the
	// incremental-update path.
	MoveComponent       int
	MoveX, MoveY, MoveZ float64
}

// DetectWrapper is the gcfg binding for [Detect] sections.
type DetectWrapper struct {
	Detect DetectConfig
}

// DefaultDetectWrapper returns a wrapper holding the default values for
// optional parameters.
func DefaultDetectWrapper() *DetectWrapper {
	return &DetectWrapper{
		Detect: DetectConfig{
			ImageWidth:      800,
			ImageHeight:     800,
			MarkerMode:      "X",
			MarkerRadius:    6,
			MarkerThickness: 2,
			MarkerOpacity:   0.9,
			MoveComponent:   -1,
		},
	}
}

func (con *DetectConfig) ValidSceneFile() bool {
	if con.SceneFile == "" {
		return false
	}
	_, err := os.Stat(con.SceneFile)
	return err == nil
}

func (con *DetectConfig) ValidOutputImage() bool {
	return con.OutputImage != ""
}

func (con *DetectConfig) ValidImageSize() bool {
	return con.ImageWidth > 0 && con.ImageHeight > 0
}

func (con *DetectConfig) ValidMarkerMode() bool {
	return con.MarkerMode == "X" || con.MarkerMode == "O"
}

const ExampleDetectFile = `[Detect]

#######################
# Required Parameters #
#######################

# Scene table: one atom per row, whitespace-separated columns
#   x y z radius component bond1 bond2 bond3 bond4
# Positions and radii are in angstroms. component is an integer grouping
# rows into rigid components. bondN are row indices within the same
# component, or -1 for no bond.
SceneFile = path/to/scene.txt

# Lenience, in angstroms, subtracted from each pair's combined radii.
# Negative values flag near-contacts, positive values tolerate overlap.
Lenience = 0.0

# PNG file the collision markers are drawn into.
OutputImage = path/to/markers.png

#######################
# Optional Parameters #
#######################

# ImageWidth = 800
# ImageHeight = 800

# Marker appearance. Mode is X or O.
# MarkerMode = X
# MarkerRadius = 6
# MarkerThickness = 2
# MarkerOpacity = 0.9

# Translate one component (0-based index into the scene's component
# groups) by (MoveX, MoveY, MoveZ) through the incremental-update path
# before the final readback.
# MoveComponent = -1
# MoveX = 0
# MoveY = 0
# MoveZ = 0`
