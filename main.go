package main

import "virtualexpo/cmd"

// @title Virtual Expo Lifecycle API
// @version 1.0
// @description Admin overrides and read endpoints for the event and session lifecycle scheduler.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cmd.Execute()
}
