package main

import (
	"github.com/EllieBekrian/cab432/app"
	"github.com/EllieBekrian/cab432/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	router, err := app.NewRouter()
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting", zap.String("port", viper.GetString("host.port")))

	err = router.Run(":" + viper.GetString("host.port"))
	if err != nil {
		panic(err)
	}
}
