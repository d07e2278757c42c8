package lanegraph

// Palette is the fixed lane color cycle. Lane i is drawn in
// Palette[i mod len(Palette)].
var Palette = []string{
	"#2f81f7", // blue
	"#3fb950", // green
	"#d29922", // amber
	"#a371f7", // purple
	"#f778ba", // pink
	"#39c5cf", // teal
	"#f0883e", // orange
	"#8b949e", // gray
}

// ColorForLane returns the palette color for a lane index.
func ColorForLane(i int) string {
	n := len(Palette)
	return Palette[((i%n)+n)%n]
}
