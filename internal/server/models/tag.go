package models

// TagID identifies a member of the closed tag vocabulary. Clients never
// create tags; adding one is a schema migration plus a new constant here.
type TagID int

const (
	// Clothing categories.
	TagClothingAccessories TagID = iota + 1
	TagFootwear
	TagAccessoriesAndJewelry
	TagHandbagsAndLuggage
	TagMensClothing
	TagWomensClothing

	// Consumer electronics.
	TagAudioEquipment
	TagCameraEquipment
	TagCarAndGPS
	TagComputerAccessories
	TagDesktopComputersAndMonitors
	TagLaptopsAndNotebooks
	TagSmartphones
	TagTabletsAndEReaders
	TagTelevisions
	TagVideoGamesAndConsoles
	TagWearables
)

var tagDescriptions = map[TagID]string{
	TagClothingAccessories:         "clothing accessories",
	TagFootwear:                    "footwear",
	TagAccessoriesAndJewelry:       "accessories and jewelry",
	TagHandbagsAndLuggage:          "handbags and luggage",
	TagMensClothing:                "mens clothing",
	TagWomensClothing:              "womens clothing",
	TagAudioEquipment:              "audio equipment",
	TagCameraEquipment:             "camera equipment",
	TagCarAndGPS:                   "car and gps",
	TagComputerAccessories:         "computer accessories",
	TagDesktopComputersAndMonitors: "desktop computers and monitors",
	TagLaptopsAndNotebooks:         "laptops and notebooks",
	TagSmartphones:                 "smartphones",
	TagTabletsAndEReaders:          "tablets and ereaders",
	TagTelevisions:                 "televisions",
	TagVideoGamesAndConsoles:       "video games and consoles",
	TagWearables:                   "wearables",
}

// Valid reports whether id belongs to the vocabulary.
func (id TagID) Valid() bool {
	_, ok := tagDescriptions[id]
	return ok
}

func (id TagID) String() string {
	if s, ok := tagDescriptions[id]; ok {
		return s
	}
	return "unknown tag"
}

// AllTags returns the vocabulary in id order. Used to seed the tags table
// and by clients that present the selection list.
func AllTags() []TagID {
	out := make([]TagID, 0, len(tagDescriptions))
	for id := TagClothingAccessories; id <= TagWearables; id++ {
		out = append(out, id)
	}
	return out
}

// ValidateTags checks a client-provided tag id list against the vocabulary
// and rejects duplicates.
func ValidateTags(ids []int) ([]TagID, error) {
	seen := make(map[TagID]struct{}, len(ids))
	out := make([]TagID, 0, len(ids))
	for _, raw := range ids {
		id := TagID(raw)
		if !id.Valid() {
			return nil, errUnknownTag(raw)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
