package visitors

import "hash/fnv"

var visitorAdjectives = []string{
	"Curious", "Happy", "Clever", "Wise", "Playful", "Brave", "Swift", "Gentle", "Smart", "Busy",
	"Bold", "Bright", "Calm", "Cheerful", "Daring", "Eager", "Friendly", "Jolly", "Kind", "Lively",
	"Merry", "Nimble", "Quick", "Quiet", "Radiant", "Serene", "Sleepy", "Sparky", "Sturdy", "Warm",
}

var visitorAnimals = []string{
	"Panda", "Fox", "Owl", "Otter", "Lion", "Eagle", "Deer", "Raven", "Beaver", "Koala",
	"Sloth", "Hamster", "Cat", "Bear", "Penguin", "Kangaroo", "Parrot", "Giraffe", "Duck", "Raccoon",
	"Dolphin", "Whale", "Seahorse", "Turtle", "Octopus", "Falcon", "Hedgehog", "Lynx", "Badger", "Heron",
}

// Alias returns an anonymized display name for the given session id.
func Alias(sessionID string) string {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	index := int(h.Sum32())

	adjIndex := index % len(visitorAdjectives)
	animalIndex := (index / len(visitorAdjectives)) % len(visitorAnimals)

	return visitorAdjectives[adjIndex] + " " + visitorAnimals[animalIndex]
}
