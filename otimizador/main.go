package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"DrawCallsOptimizer/otimizador/internal/app"
	"DrawCallsOptimizer/otimizador/internal/rollback"
	"DrawCallsOptimizer/shared/config"
	"DrawCallsOptimizer/shared/scene"
)

func main() {
	// Flags de linha de comando
	configPath := flag.String("config", "config.json", "Arquivo de configuração (JSON ou YAML)")
	scenePath := flag.String("scene", "", "Arquivo de cena (JSON)")
	outPath := flag.String("out", "", "Onde gravar a cena otimizada (padrão: sobrescreve -scene)")
	dbPath := flag.String("db", "", "Banco SQLite da sessão de desfazer")
	sessionName := flag.String("session", "default", "Nome da sessão de desfazer")
	bounds := flag.String("bounds", "", "Nome do objeto de limites")
	workers := flag.Int("workers", 0, "Tarefas simultâneas na atribuição aos chunks")
	restore := flag.Bool("restore", false, "Reativa os objetos originais da sessão e sai")
	destroyCreated := flag.Bool("destroy-created", false, "Destrói os objetos criados pela sessão e sai")
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Erro fatal: %v", err)
	}

	// Flags sobrescrevem o arquivo
	if *dbPath != "" {
		cfg.SessionDB = *dbPath
	}
	if *bounds != "" {
		cfg.BoundsObject = *bounds
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	// Log no console e no arquivo
	if cfg.LogFile != "" {
		logFile, err := openLogFile(cfg.LogFile)
		if err != nil {
			log.Printf("[Otimizador] Aviso: log apenas no console: %v", err)
		} else {
			defer logFile.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, logFile))
		}
	}

	log.Println("╔══════════════════════════════════════╗")
	log.Println("║     DrawCallsOptimizer v0.1.0        ║")
	log.Println("║  Agrupamento de malhas por região    ║")
	log.Println("╚══════════════════════════════════════╝")

	if *scenePath == "" {
		log.Fatalf("Erro fatal: informe a cena com -scene")
	}
	if *outPath == "" {
		*outPath = *scenePath
	}

	store, err := scene.LoadFile(*scenePath)
	if err != nil {
		log.Fatalf("Erro fatal: %v", err)
	}

	history, err := rollback.Open(cfg.SessionDB)
	if err != nil {
		log.Fatalf("Erro fatal: %v", err)
	}
	defer history.Close()

	sess := rollback.NewSession(store)
	savedScene, err := history.LoadSession(*sessionName, sess)
	switch {
	case errors.Is(err, rollback.ErrNoSession):
		savedScene = ""
	case err != nil:
		log.Fatalf("Erro fatal: %v", err)
	}
	if savedScene != "" && savedScene != *scenePath {
		log.Printf("[Otimizador] Aviso: a sessão %q foi gravada para %s, não para %s", *sessionName, savedScene, *scenePath)
	}

	if *restore || *destroyCreated {
		if savedScene == "" {
			log.Fatalf("Erro fatal: sessão %q não encontrada em %s", *sessionName, cfg.SessionDB)
		}
		if *restore {
			sess.RestoreOriginals()
		}
		if *destroyCreated {
			sess.DestroyCreated()
			if err := history.ClearMerges(*sessionName); err != nil {
				log.Printf("[Otimizador] Falha ao limpar o histórico: %v", err)
			}
		}
		save(store, history, sess, *sessionName, *outPath)
		return
	}

	o := app.New(store, cfg, sess)
	o.History = history
	o.SessionName = *sessionName

	report, err := o.Run()
	if err != nil {
		log.Fatalf("Erro fatal: %v", err)
	}

	save(store, history, sess, *sessionName, *outPath)

	log.Printf("Região: %s | Candidatos: %d | Chunks: %d (%d entidades atribuídas)",
		report.Region, report.Candidates, report.Chunks, report.Assigned)
	for _, m := range report.Methods {
		log.Printf("  → %-10s %3d grupos, %3d fusões, %4d entidades, %d obsoletas",
			m.Method.Key(), m.Groups, m.Merged, m.Entities, m.Stale)
	}
	log.Printf("Originais desativadas: %d | Tempo: %v", report.Originals, report.Duration)
}

// openLogFile abre o arquivo de log em modo append, criando o diretório se preciso.
func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("falha ao criar diretório de log %s: %w", dir, err)
		}
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// save grava a cena e a sessão; a sessão aponta para a cena gravada.
func save(store *scene.Store, history *rollback.Store, sess *rollback.Session, name, path string) {
	if err := store.SaveFile(path); err != nil {
		log.Fatalf("Erro fatal: falha ao gravar cena %s: %v", path, err)
	}
	if err := history.SaveSession(name, path, sess); err != nil {
		log.Fatalf("Erro fatal: %v", err)
	}
	log.Printf("[Otimizador] Cena gravada em %s (sessão %q)", path, name)
}
