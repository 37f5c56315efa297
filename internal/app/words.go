package app

import "math/rand"

// WordPacks maps pack names to the words offered as first-word
// suggestions. "Simple words" doubles as the fallback pool for bots in
// word-first rounds.
var WordPacks = map[string][]string{
	"Simple words": {
		"apple", "house", "tree", "car", "sun",
		"moon", "star", "fish", "bird", "cake",
		"boat", "train", "clock", "chair", "cloud",
		"flower", "banana", "guitar", "ladder", "rocket",
		"snowman", "rainbow", "pirate", "castle", "robot",
	},
	"Animals": {
		"elephant", "giraffe", "penguin", "kangaroo", "octopus",
		"flamingo", "hedgehog", "walrus", "platypus", "armadillo",
		"chameleon", "porcupine", "meerkat", "narwhal", "pelican",
		"sloth", "otter", "badger", "raccoon", "toucan",
	},
	"Objects": {
		"umbrella", "toothbrush", "stapler", "telescope", "harmonica",
		"wheelbarrow", "chandelier", "typewriter", "accordion", "anvil",
		"periscope", "metronome", "thimble", "corkscrew", "hourglass",
		"kaleidoscope", "sundial", "abacus", "gargoyle", "catapult",
	},
	"Locations": {
		"lighthouse", "volcano", "waterfall", "desert", "iceberg",
		"jungle", "canyon", "harbor", "meadow", "swamp",
		"glacier", "oasis", "quarry", "vineyard", "labyrinth",
		"observatory", "catacombs", "boardwalk", "greenhouse", "junkyard",
	},
	"Difficult words": {
		"nostalgia", "gravity", "echo", "deja vu", "procrastination",
		"sarcasm", "silence", "inflation", "camouflage", "hibernation",
		"democracy", "metamorphosis", "serendipity", "entropy", "paradox",
		"mirage", "vertigo", "claustrophobia", "momentum", "telepathy",
	},
}

// DefaultWordPack is used when a bot must invent a first word in a
// word-first round, where no pack was chosen.
const DefaultWordPack = "Simple words"

// IsWordPack reports whether the given pack name exists
func IsWordPack(name string) bool {
	_, ok := WordPacks[name]
	return ok
}

// WordPackNames returns the names of all available packs
func WordPackNames() []string {
	names := make([]string, 0, len(WordPacks))
	for name := range WordPacks {
		names = append(names, name)
	}
	return names
}

// RandomWord returns a random word from the named pack, falling back to
// the default pack for unknown names.
func RandomWord(packName string) string {
	pack, ok := WordPacks[packName]
	if !ok {
		pack = WordPacks[DefaultWordPack]
	}
	return pack[rand.Intn(len(pack))]
}

// RandomWordExcluding returns a random word from the named pack that is
// not in the excluded list, giving up after enough attempts.
func RandomWordExcluding(packName string, excluded []string) string {
	excludeMap := make(map[string]bool, len(excluded))
	for _, w := range excluded {
		excludeMap[w] = true
	}

	for attempts := 0; attempts < 100; attempts++ {
		word := RandomWord(packName)
		if !excludeMap[word] {
			return word
		}
	}

	return RandomWord(packName)
}
