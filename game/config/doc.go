// Package config provides configuration for the Carcacity server.
//
// Two kinds of configuration live here:
//   - Settings: process-wide options (listen address, rate limit, robot pace,
//     lobby capacity, colour palette) filled from flags, environment variables
//     and an optional .env file.
//   - Tile catalogs: JSON files in the catalog directory describing the tile
//     kinds, how many of each go into the deck, and the land type grid used
//     for edge matching.
//
// Catalog Format:
//
//	{
//	  "name": "default",
//	  "description": "Fields, roads and cities",
//	  "subdivisions": 3,
//	  "tiles": [
//	    {"id": "road-straight", "image": "tiles/road-straight.png", "count": 8,
//	     "land": [["field","road","field"], ["field","road","field"], ["field","road","field"]]}
//	  ]
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	catalog, err := manager.LoadCatalog("default")
//	catalogs, err := manager.ListCatalogs()
//
// When the directory holds no valid catalog the built-in default is used.
package config
