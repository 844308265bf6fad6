package game

import "math/rand"

// Locations is the secret catalog, grouped by category.
var Locations = map[string][]string{
	"City": {
		"Bank", "Train Station", "Police Station", "Fire Station",
		"Shopping Mall", "Parking Garage", "Post Office", "Apartment Complex",
		"Metro Station", "Taxi Stand", "Highway Toll Booth", "Train Compartment",
	},
	"Education": {
		"University", "Kindergarten", "Science Lab", "Art Studio",
		"Debate Hall", "Library", "School",
	},
	"Medical": {
		"Hospital", "Dentist Office", "Pharmacy",
		"Veterinary Clinic", "Psychiatric Hospital",
	},
	"Travel": {
		"Airport", "Space Station", "Cruise Ship",
		"Border Checkpoint", "Ferry Terminal", "Airplane",
	},
	"Entertainment": {
		"Cinema", "Ice Cream Shop", "Nightclub", "Game Arcade",
		"Buffet Restaurant", "Karaoke Bar", "Bowling Alley", "Theme Park",
	},
	"Fictional": {
		"Wizard School", "Supervillain Lair", "Zombie Apocalypse Shelter",
		"Pirate Ship", "Alien Planet", "Time Machine",
	},
	"Historical": {
		"Roman Colosseum", "Medieval Castle", "Ancient Pyramid",
		"World War Bunker", "Samurai Dojo", "Wild West Saloon",
	},
	"Scientific": {
		"Nuclear Reactor", "Control Room", "Space Research Center",
		"Submarine", "Secret Lab", "Particle Accelerator",
	},
	"Outdoor": {
		"Beach", "Forest Camp", "Waterfall", "Hiking Trail",
		"Farm", "Desert Camp", "Jungle Safari",
	},
}

func allLocations() []string {
	var all []string
	for _, group := range Locations {
		all = append(all, group...)
	}
	return all
}

// RandomLocation draws a location uniformly from the whole catalog.
func RandomLocation() string {
	all := allLocations()
	return all[rand.Intn(len(all))]
}

// RandomLocationExcept draws a wrong location for a decoy: uniform over the
// catalog excluding the canonical secret.
func RandomLocationExcept(canonical string) string {
	all := allLocations()
	candidates := all[:0]
	for _, loc := range all {
		if loc != canonical {
			candidates = append(candidates, loc)
		}
	}
	return candidates[rand.Intn(len(candidates))]
}
