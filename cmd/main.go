package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rhizomelab/rhizome-backend/internal/app"
	"github.com/rhizomelab/rhizome-backend/internal/data/db"
	repos "github.com/rhizomelab/rhizome-backend/internal/data/repos/rhizome"
	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/ingestion"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
	"github.com/rhizomelab/rhizome-backend/internal/platform/localsource"
	"github.com/rhizomelab/rhizome-backend/internal/platform/openai"
	"github.com/rhizomelab/rhizome-backend/internal/platform/pinecone"
	"github.com/rhizomelab/rhizome-backend/internal/services"
	"github.com/rhizomelab/rhizome-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := app.Load(log)
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()
	if err := db.AutoMigrateAll(thePG); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	// Repos
	log.Info("Setting up repos...")
	sysDictRepo := repos.NewSysDictRepo(thePG, log)
	blobRepo := repos.NewBlobRepo(thePG, log)
	originRepo := repos.NewOriginRepo(thePG, log)
	revisionRepo := repos.NewRevisionRepo(thePG, log, originRepo)
	chunkRepo := repos.NewChunkRepo(thePG, log)
	edgeRepo := repos.NewEdgeRepo(thePG, log)
	treeRepo := repos.NewTreeRepo(thePG, log)

	// Annotation providers
	oai, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err)
	}
	annotator := ingestion.NewAnnotator(oai, oai, nil, log)

	// Optional vector mirror
	var vectors services.VectorStore
	if apiKey := utils.GetEnv("PINECONE_API_KEY", "", log); apiKey != "" {
		pc, err := pinecone.New(log, pinecone.Config{APIKey: apiKey})
		if err != nil {
			log.Warn("Pinecone client init failed; continuing without vector mirror", "error", err)
		} else if vs, err := pinecone.NewVectorStore(log, pc); err != nil {
			log.Warn("Pinecone vector store init failed; continuing without vector mirror", "error", err)
		} else {
			vectors = vs
		}
	}

	// Services
	log.Info("Setting up services...")
	ingestionService := services.NewIngestionService(
		thePG, log, originRepo, blobRepo, revisionRepo, chunkRepo, annotator, vectors)
	seedService := services.NewSeedService(
		thePG, log, sysDictRepo, blobRepo, originRepo, revisionRepo, chunkRepo, edgeRepo, treeRepo)

	log.Info("rhizome backend wired",
		"chunk_max_size", cfg.Chunking.MaxSize,
		"embed_dimension", cfg.Embedding.TargetDimension,
		"vector_mirror", vectors != nil,
	)

	ctx := context.Background()

	// Seed a local tree when one is configured.
	if seedPath := utils.GetEnv("RHIZOME_SEED_PATH", "", log); seedPath != "" {
		result, err := seedService.SeedTree(ctx, services.SeedTreeInput{
			Source:       localsource.New(seedPath),
			SourceSystem: "Local",
			Chunking:     cfg.Chunking,
		})
		if err != nil {
			log.Fatal("Seeding failed", "path", seedPath, "error", err)
		}
		log.Info("Seeding finished",
			"path", seedPath,
			"root_origin_id", result.RootOriginID,
			"files", result.FilesSeeded,
		)
	}

	// Ingest one document as a new revision of an existing origin when both
	// knobs are set. This is the fully annotated path: summaries, embeddings,
	// and the optional vector mirror.
	ingestURN := utils.GetEnv("RHIZOME_INGEST_URN", "", log)
	ingestFile := utils.GetEnv("RHIZOME_INGEST_FILE", "", log)
	if ingestURN == "" || ingestFile == "" {
		return
	}
	body, err := os.ReadFile(ingestFile)
	if err != nil {
		log.Fatal("Reading ingest file failed", "file", ingestFile, "error", err)
	}
	origin, err := originRepo.GetByURN(ctx, nil, ingestURN)
	if err != nil {
		log.Fatal("Resolving ingest origin failed", "urn", ingestURN, "error", err)
	}
	editor, err := sysDictRepo.GetOrCreate(ctx, nil, types.CategoryEditor, "System")
	if err != nil {
		log.Fatal("Resolving editor failed", "error", err)
	}
	rev, rows, err := ingestionService.IngestDocument(ctx, services.IngestDocumentInput{
		OriginID:  origin.ID,
		Title:     "Update of " + filepath.Base(ingestFile),
		Body:      body,
		EditorID:  editor.ID,
		Chunking:  cfg.Chunking,
		Embedding: cfg.Embedding,
	})
	if err != nil {
		log.Fatal("Ingestion failed", "urn", ingestURN, "error", err)
	}
	log.Info("Ingestion finished",
		"urn", ingestURN,
		"revision_id", rev.ID,
		"chunks", len(rows),
	)
}
