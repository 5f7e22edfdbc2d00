package mqtt

import "strings"

// IntentTopic is where remote editors publish intents for a stage.
func IntentTopic(stageID string) string {
	return "stage/" + stageID + "/intents"
}

// SpriteStateTopic carries sprite.updated patches for one sprite.
func SpriteStateTopic(stageID, spriteID string) string {
	return "stage/" + stageID + "/sprites/" + spriteID + "/state"
}

// RunTopic carries run.started, run.stopped and run.completed.
func RunTopic(stageID string) string {
	return "stage/" + stageID + "/run"
}

// CollisionTopic carries collision.detected.
func CollisionTopic(stageID string) string {
	return "stage/" + stageID + "/collisions"
}

// SpriteFromStateTopic extracts the sprite id from a sprite state topic.
func SpriteFromStateTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "stage" || parts[2] != "sprites" || parts[4] != "state" {
		return "", false
	}
	return parts[3], true
}
