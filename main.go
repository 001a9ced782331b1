package main

import (
	"fmt"

	"vibeboard-server/config"
	"vibeboard-server/models"
	"vibeboard-server/routers"
	"vibeboard-server/service"
)

func main() {
	config.InitConfig()
	fmt.Println("Server starting on port", config.AppConfig.Server.Port)
	models.InitDB()

	service.InitQueue()
	service.InitMinIO()
	service.InitPipeline(models.GormDB)

	processor := service.NewProcessor(service.Orch)
	processor.StartProcessor(2)

	r := routers.InitRouter()
	r.Run(config.AppConfig.Server.Port)
}
