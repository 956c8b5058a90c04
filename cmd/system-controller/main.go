package main

import (
	"flag"
	"log"

	"github.com/JiHungLin/Skalds/internal/app"
	"github.com/JiHungLin/Skalds/internal/app/registry"
	"github.com/JiHungLin/Skalds/internal/registry_ext"
)

func main() {
	env := flag.String("env", "dev", "deployment environment name")
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	flag.Parse()

	registry.RegisterInfraComponents()
	registry_ext.Register()

	a := app.NewApp(*env, *configPath)
	if err := a.Run(); err != nil {
		log.Fatalf("system-controller exited with error: %v", err)
	}
}
