package catalog

import "dlc_store/internal/models"

// Seed returns a fresh copy of the built-in catalog.
func Seed() []models.Product {
	return []models.Product{
		{
			ID:            1,
			Title:         "Minecraft Dungeons: Hidden Depths",
			Description:   "Explore sunken dungeons with new enemies and artifacts",
			Price:         299,
			OriginalPrice: 499,
			Discount:      40,
			Image:         "🏰",
			Category:      "Adventure",
			GameID:        "minecraft-dungeons",
			Platform:      []string{"PC", "Xbox", "PlayStation"},
			Rating:        4.7,
			ReviewsCount:  1234,
			ReleaseDate:   "2023-09-12",
			Features:      []string{"New levels", "Underwater theme", "Unique artifacts"},
			SystemRequirements: models.SystemRequirements{
				Minimum:     "Windows 10, 4GB RAM, DirectX 11",
				Recommended: "Windows 11, 8GB RAM, DirectX 12",
			},
			InStock:      true,
			DownloadSize: "2.1 GB",
		},
		{
			ID:            2,
			Title:         "Cyberpunk 2077: Phantom Liberty",
			Description:   "A new spy-thriller story in Night City",
			Price:         1299,
			OriginalPrice: 1599,
			Discount:      19,
			Image:         "🤖",
			Category:      "RPG",
			GameID:        "cyberpunk-2077",
			Platform:      []string{"PC", "Xbox", "PlayStation"},
			Rating:        4.9,
			ReviewsCount:  5678,
			ReleaseDate:   "2023-09-26",
			Features:      []string{"New district", "Keanu Reeves", "15+ hours of content"},
			SystemRequirements: models.SystemRequirements{
				Minimum:     "Windows 10, 8GB RAM, GTX 1060",
				Recommended: "Windows 11, 16GB RAM, RTX 3070",
			},
			InStock:      true,
			DownloadSize: "18.5 GB",
		},
		{
			ID:            3,
			Title:         "Elden Ring: Shadow of the Erdtree",
			Description:   "An epic expansion to the game of the year",
			Price:         1799,
			OriginalPrice: 2199,
			Discount:      18,
			Image:         "⚔️",
			Category:      "Action",
			GameID:        "elden-ring",
			Platform:      []string{"PC", "Xbox", "PlayStation"},
			Rating:        4.8,
			ReviewsCount:  9876,
			ReleaseDate:   "2024-06-21",
			Features:      []string{"New map", "Bosses", "Weapons and spells"},
			SystemRequirements: models.SystemRequirements{
				Minimum:     "Windows 10, 12GB RAM, GTX 1060",
				Recommended: "Windows 11, 16GB RAM, RTX 3060",
			},
			InStock:      true,
			DownloadSize: "42.3 GB",
		},
	}
}
