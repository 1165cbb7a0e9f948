// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-crusty.
//
// go-crusty is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package share

// wordlist maps each byte value to a distinct word. Decoding depends on the
// words being unique; the order is part of the mnemonic format.
var wordlist = [256]string{
	"able", "acid", "aged", "also", "area", "army", "away", "baby",
	"back", "ball", "band", "bank", "base", "bath", "bean", "bear",
	"beat", "bell", "belt", "bench", "bird", "blow", "blue", "boat",
	"body", "bone", "book", "boot", "born", "boss", "both", "bowl",
	"bread", "brick", "bridge", "brief", "bright", "bring", "broad", "brown",
	"brush", "build", "bulk", "burn", "bush", "busy", "cable", "cake",
	"calm", "camp", "canal", "candy", "card", "care", "cargo", "carpet",
	"case", "cash", "castle", "cause", "cell", "chair", "chalk", "charm",
	"chart", "cheek", "chef", "chest", "chief", "child", "chin", "city",
	"clay", "clerk", "cliff", "clock", "cloud", "club", "coach", "coal",
	"coast", "coat", "code", "coin", "cold", "comb", "cook", "copper",
	"coral", "corn", "cotton", "couch", "crane", "cream", "crew", "crop",
	"crown", "cube", "cup", "curve", "cycle", "daily", "dance", "dark",
	"dawn", "deal", "deer", "delta", "desk", "dial", "diary", "dice",
	"dinner", "dish", "dock", "door", "dove", "dragon", "drama", "dream",
	"dress", "drift", "drum", "duck", "dune", "dust", "eagle", "early",
	"earth", "east", "echo", "edge", "eight", "elbow", "elder", "empty",
	"engine", "equal", "event", "exit", "fabric", "face", "fair", "farm",
	"fault", "feast", "fence", "ferry", "field", "film", "final", "fire",
	"fish", "flag", "flame", "flat", "fleet", "flock", "floor", "flute",
	"foam", "focus", "fog", "forest", "fork", "fossil", "fox", "frame",
	"frost", "fruit", "fuel", "gallery", "game", "garden", "gate", "gem",
	"ghost", "giant", "gift", "glass", "globe", "glove", "goat", "gold",
	"grain", "grape", "grass", "gravel", "green", "grid", "guard", "guest",
	"guide", "guitar", "habit", "hair", "hammer", "harbor", "harvest", "hat",
	"hawk", "heart", "hedge", "helmet", "hero", "hill", "hobby", "honey",
	"hook", "horse", "hotel", "hunt", "ice", "idea", "inch", "index",
	"ink", "island", "ivory", "jacket", "jade", "jar", "jelly", "jewel",
	"joke", "judge", "juice", "jungle", "kettle", "kid", "king", "kite",
	"kitten", "knee", "knife", "knot", "label", "ladder", "lake", "lamp",
	"lance", "laser", "lava", "lawn", "leaf", "lemon", "lens", "lily",
	"limb", "linen", "lion", "liquid", "lobby", "lock", "lodge", "logic",
}

var wordIndex = func() map[string]byte {
	m := make(map[string]byte, len(wordlist))
	for i, w := range wordlist {
		if _, dup := m[w]; dup {
			panic("share: duplicate mnemonic word " + w)
		}
		m[w] = byte(i)
	}
	return m
}()
