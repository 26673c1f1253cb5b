package main

import "github.com/killallgit/speech-coach/cmd"

// @title           Speech Coach API
// @version         1.0.0
// @description     Speech analysis pipeline: transcription, delivery metrics, exemplar similarity and coaching feedback
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/speech-coach
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
