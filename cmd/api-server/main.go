package main

import (
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/app"
)

func main() {
	application, err := app.Initialize("")
	if err != nil {
		panic(err)
	}

	app.StartServer(application)
}
