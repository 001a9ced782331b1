package pipeline

import (
	"encoding/json"
	"log"
)

// The generation backend has gone through several response schema revisions;
// the shot list of a breakdown may sit under any of these keys. Checked in
// order, first non-empty list wins.
var shotListKeys = []string{"shots", "shotList", "shot_list", "sceneShots"}

// ExtractShots pulls the shot list out of a raw breakdown object. A scene
// with no recognizable shots yields an empty list, never an error; absence of
// shots is a valid, if degenerate, outcome.
func ExtractShots(raw json.RawMessage) []Shot {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for _, key := range shotListKeys {
		payload, ok := fields[key]
		if !ok {
			continue
		}
		var shots []Shot
		if err := json.Unmarshal(payload, &shots); err != nil {
			continue
		}
		if len(shots) > 0 {
			return shots
		}
	}
	return nil
}

// NormalizeBreakdown turns a raw breakdown response into the canonical scene
// shape. Shot durations default to defaultShotDuration when the backend left
// them unset.
func NormalizeBreakdown(sceneNumber int, heading SceneHeading, raw json.RawMessage, defaultShotDuration int) SceneBreakdown {
	var meta struct {
		Description   string   `json:"description"`
		EmotionalBeat string   `json:"emotionalBeat"`
		Characters    []string `json:"characters"`
	}
	_ = json.Unmarshal(raw, &meta)

	shots := ExtractShots(raw)
	for i := range shots {
		if shots[i].Duration <= 0 {
			shots[i].Duration = defaultShotDuration
		}
	}

	return SceneBreakdown{
		SceneNumber:   sceneNumber,
		Heading:       heading,
		Description:   meta.Description,
		EmotionalBeat: meta.EmotionalBeat,
		Characters:    meta.Characters,
		Shots:         shots,
	}
}

// ExtractPrompts accepts both prompt response shapes: a bare array of prompt
// objects, or an object wrapping the array under "prompts". Anything else is
// treated as zero prompts for the scene and the run continues.
func ExtractPrompts(raw json.RawMessage) []ShotPrompt {
	var bare []ShotPrompt
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare
	}
	var wrapped struct {
		Prompts []ShotPrompt `json:"prompts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Prompts != nil {
		return wrapped.Prompts
	}
	log.Printf("[pipeline] unrecognized prompt response shape, treating as empty")
	return nil
}
