package main

import (
	"flag"
	"log"

	"twse-attention-radar/app"
	"twse-attention-radar/config"
)

func main() {
	once := flag.Bool("once", false, "run a single scan immediately and exit")
	param := flag.String("param", "", "upsert a stock parameter (CODE:MARKET:SHARES) and exit")
	flag.Parse()

	// Load config from .env file
	cfg := config.LoadFromEnv()

	application := app.New(cfg)

	if *param != "" {
		p, err := app.ParseStockParam(*param)
		if err != nil {
			log.Fatal(err)
		}
		if err := application.SaveParam(p); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := application.Start(*once); err != nil {
		log.Fatal(err)
	}
}
