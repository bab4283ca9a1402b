package main

import "github.com/killallgit/meeting-recorder/cmd"

// @title           Meeting Recorder API
// @version         1.0.0
// @description     Records meetings, transcribes every speaker and runs analysis prompts over the transcripts
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/meeting-recorder
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Session token as "Bearer <token>"
func main() {
	cmd.Execute()
}
