package registry

// defaultCatalog lists every weapon case on the Steam Community Market in
// release order. Release order keeps IDs stable as new cases ship: each new
// case is appended at the end.
var defaultCatalog = []string{
	"CS:GO Weapon Case",
	"eSports 2013 Case",
	"Operation Bravo Case",
	"CS:GO Weapon Case 2",
	"eSports 2013 Winter Case",
	"Winter Offensive Weapon Case",
	"CS:GO Weapon Case 3",
	"Operation Phoenix Weapon Case",
	"Huntsman Weapon Case",
	"Operation Breakout Weapon Case",
	"eSports 2014 Summer Case",
	"Operation Vanguard Weapon Case",
	"Chroma Case",
	"Chroma 2 Case",
	"Falchion Case",
	"Shadow Case",
	"Revolver Case",
	"Operation Wildfire Case",
	"Chroma 3 Case",
	"Gamma Case",
	"Gamma 2 Case",
	"Glove Case",
	"Spectrum Case",
	"Operation Hydra Case",
	"Spectrum 2 Case",
	"Clutch Case",
	"Horizon Case",
	"Danger Zone Case",
	"Prisma Case",
	"CS20 Case",
	"Shattered Web Case",
	"Prisma 2 Case",
	"Fracture Case",
	"Operation Broken Fang Case",
	"Snakebite Case",
	"Operation Riptide Case",
	"Dreams & Nightmares Case",
	"Recoil Case",
	"Revolution Case",
	"Anubis Collection Package",
	"Kilowatt Case",
	"Gallery Case",
	"Fever Case",
}

// Default returns a registry seeded with the built-in case catalog.
func Default() *Registry {
	items := make([]string, len(defaultCatalog))
	copy(items, defaultCatalog)
	return New(items)
}
