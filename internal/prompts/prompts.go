// Package prompts builds the text directive that accompanies each
// generation task. The orchestrator treats the result as an opaque
// string; everything here is presentation-side vocabulary.
package prompts

import (
	"hash/fnv"
	"path/filepath"
	"strings"
)

// Motion classes select which directive pool a given input draws from.
const (
	MotionSubtle       = "subtle"
	MotionProductFocus = "product_focus"
	MotionEnviron      = "environmental"
)

var motionPools = map[string][]string{
	MotionSubtle: {
		"gentle camera movement, slow zoom in, cinematic lighting",
		"soft focus transition, elegant reveal, professional cinematography",
		"smooth dolly movement, steady camera, luxury ambiance",
		"gradual depth of field change, sophisticated presentation",
		"calm atmospheric movement, premium lighting, stable composition",
	},
	MotionProductFocus: {
		"product showcase rotation, premium display, studio lighting",
		"elegant product reveal, sophisticated presentation, clean aesthetics",
		"luxury item focus, professional photography style, minimal movement",
		"high-end product demonstration, premium brand presentation",
		"sophisticated product display, corporate elegance, refined movement",
	},
	MotionEnviron: {
		"ambient environmental movement, natural lighting changes",
		"subtle atmospheric shifts, organic lighting variation",
		"gentle environmental animation, realistic ambiance",
		"natural scene progression, environmental storytelling",
		"atmospheric depth creation, immersive environment",
	},
}

type contentPattern struct {
	keyword string
	class   string
}

// contentPatterns maps filename keywords to a motion class. Order
// matters: the first matching keyword wins, so a filename carrying
// keywords from two classes resolves the same way on every run.
var contentPatterns = []contentPattern{
	{"watch", MotionProductFocus},
	{"rolex", MotionProductFocus},
	{"camera", MotionProductFocus},
	{"leica", MotionProductFocus},
	{"bitcoin", MotionProductFocus},
	{"coin", MotionProductFocus},
	{"amex", MotionProductFocus},
	{"centurion", MotionProductFocus},
	{"iphone", MotionProductFocus},
	{"harley", MotionEnviron},
	{"davidson", MotionEnviron},
	{"rug", MotionEnviron},
	{"persian", MotionEnviron},
	{"throw", MotionEnviron},
	{"cashmere", MotionEnviron},
	{"decanter", MotionProductFocus},
	{"wine", MotionProductFocus},
}

// DetectMotionClass chooses a motion class from filename keywords,
// defaulting to subtle motion.
func DetectMotionClass(filename string) string {
	lower := strings.ToLower(filename)
	for _, p := range contentPatterns {
		if strings.Contains(lower, p.keyword) {
			return p.class
		}
	}
	return MotionSubtle
}

// BuildDirective produces the directive for an input artifact. The pick
// within a pool is a stable hash of the filename, so the same input
// always yields the same directive across runs.
func BuildDirective(inputPath string) string {
	name := filepath.Base(inputPath)
	pool := motionPools[DetectMotionClass(name)]

	h := fnv.New32a()
	h.Write([]byte(name))
	return pool[int(h.Sum32())%len(pool)]
}
