package changeset

import (
	"math/rand/v2"
	"strings"
)

// Extension is the file extension of changeset notes.
const Extension = ".md"

var wordList = strings.Fields(`
amber anchor apple arch arrow aspen atlas autumn badge bamboo basin beacon berry birch
blaze bloom bolt breeze brick brook cabin cactus canyon cedar chalk cherry cider cinder
clover cobalt comet copper coral cotton crane creek crystal cypress dawn delta desert dune
eagle ember falcon fern field flint forest fossil frost garnet glacier granite grove harbor
hazel heron hollow honey horizon iris island ivory jade jasper juniper kelp kestrel lagoon
lantern larch laurel lemon lilac linen lotus lunar maple marble meadow mesa mint mist moss
nectar needle nickel north oak oasis ocean olive onyx orbit orchid otter pebble pepper pine
planet plum polar poppy prairie quartz quill rain raven reed ridge river robin ruby saffron
sage sand scarlet shadow shell sierra silver slate snow sparrow spruce star stone summit
sun swift thistle thorn thunder tide timber topaz trail tulip tundra valley velvet violet
walnut willow wind winter wren yarrow zephyr
`)

// RandomFileName returns a word-word.md name for a new changeset.
func RandomFileName() string {
	return wordList[rand.IntN(len(wordList))] + "-" + wordList[rand.IntN(len(wordList))] + Extension
}
