// Commande seed : remplit le catalogue et les avis pour les environnements de démo.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"atelier_back_end/internal/config"
	"atelier_back_end/internal/database"
	"atelier_back_end/internal/logger"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/search"
	"atelier_back_end/internal/store"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	kinds = map[string][]string{
		"tables":     {"Table", "Table basse", "Console", "Bureau"},
		"assises":    {"Chaise", "Fauteuil", "Tabouret", "Banc"},
		"rangement":  {"Buffet", "Commode", "Bibliothèque", "Étagère"},
		"luminaires": {"Lampe", "Suspension", "Applique"},
	}
	materials = []string{"chêne", "noyer", "frêne", "hêtre", "teck", "rotin", "lin", "laiton", "marbre"}
	finishes  = []string{"huilé", "brossé", "ciré", "naturel", "teinté"}
	colors    = []string{"naturel", "miel", "noir", "sable", "terracotta", "olive"}
	cities    = []string{"Paris", "Lyon", "Bordeaux", "Nantes", "Lille", "Marseille", "Genève", "Bruxelles"}
	reviews   = []string{
		"Livraison soignée et finition impeccable.",
		"Encore plus beau qu'en photo, le bois est magnifique.",
		"Très bon contact avec l'atelier, je recommande.",
		"Solide et élégant, exactement ce que nous cherchions.",
		"Petit délai de livraison mais la qualité est au rendez-vous.",
	}
)

func fakeProduct(f *gofakeit.Faker) *models.Product {
	category := f.RandomString([]string{"tables", "assises", "rangement", "luminaires"})
	material := f.RandomString(materials)
	name := fmt.Sprintf("%s %s %s %s", f.RandomString(kinds[category]), material, f.RandomString(finishes), f.LastName())

	price := decimal.NewFromFloat(f.Float64Range(60, 2400)).Round(0)
	p := &models.Product{
		Name:        name,
		Description: fmt.Sprintf("Pièce fabriquée à la main en %s %s, finition %s.", material, f.RandomString(materials), f.RandomString(finishes)),
		Category:    category,
		Price:       price,
		Stock:       f.Number(0, 25),
		Materials:   []string{material},
		Colors:      []string{f.RandomString(colors), f.RandomString(colors)},
		Dimensions: models.Dimensions{
			WidthCm:  float64(f.Number(30, 220)),
			DepthCm:  float64(f.Number(30, 100)),
			HeightCm: float64(f.Number(40, 200)),
		},
		WeightKg:  float64(f.Number(2, 80)),
		ImageKeys: []string{},
		Featured:  f.Number(1, 5) == 1,
		Active:    true,
	}
	if f.Bool() {
		compare := price.Mul(decimal.NewFromFloat(1.2)).Round(0)
		p.CompareAtPrice = &compare
	}
	return p
}

func fakeTestimonial(f *gofakeit.Faker) *models.Testimonial {
	return &models.Testimonial{
		Author:   f.FirstName() + " " + f.LastName()[:1] + ".",
		Location: f.RandomString(cities),
		Rating:   f.Number(4, 5),
		Message:  f.RandomString(reviews),
		Approved: f.Number(1, 4) != 1,
	}
}

func main() {
	nProducts := flag.Int("products", 24, "nombre de produits à créer")
	nTestimonials := flag.Int("testimonials", 8, "nombre d'avis à créer")
	drop := flag.Bool("drop", false, "vider produits et avis avant insertion")
	seed := flag.Uint64("seed", 0, "graine du générateur (0 = aléatoire)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("❌ Configuration invalide", zap.Error(err))
	}
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clients, err := database.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Connexion aux bases impossible", zap.Error(err))
	}
	defer clients.Close(context.Background())

	if *drop {
		for _, coll := range []string{database.CollProducts, database.CollTestimonials} {
			if err := clients.DB.Collection(coll).Drop(ctx); err != nil {
				log.Fatal("❌ Suppression collection", zap.String("collection", coll), zap.Error(err))
			}
			log.Info("🗑️ Collection vidée", zap.String("collection", coll))
		}
	}
	if err := database.EnsureIndexes(ctx, clients.DB); err != nil {
		log.Fatal("❌ Création des index MongoDB", zap.Error(err))
	}

	var engine search.Engine = search.Disabled{}
	if clients.Elastic != nil {
		engine = search.NewElastic(clients.Elastic, log)
	}

	f := gofakeit.New(*seed)
	products := store.NewProducts(clients.DB)
	created := 0
	for range *nProducts {
		p := fakeProduct(f)
		if err := products.Create(ctx, p); err != nil {
			// slug en double : on passe au suivant
			log.Warn("⚠️ produit ignoré", zap.String("name", p.Name), zap.Error(err))
			continue
		}
		if err := engine.Index(ctx, p); err != nil {
			log.Warn("⚠️ indexation Elasticsearch", zap.String("product_id", p.ID), zap.Error(err))
		}
		created++
	}
	log.Info("🌱 Produits créés", zap.Int("count", created))

	testimonials := store.NewTestimonials(clients.DB)
	for range *nTestimonials {
		if err := testimonials.Create(ctx, fakeTestimonial(f)); err != nil {
			log.Fatal("❌ Création avis", zap.Error(err))
		}
	}
	log.Info("🌱 Avis créés", zap.Int("count", *nTestimonials))
}
