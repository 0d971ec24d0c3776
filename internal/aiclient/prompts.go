package aiclient

import (
	"fmt"
	"strings"
)

// TrashCategories is the vocabulary the model must answer with.
var TrashCategories = []string{"พลาสติก", "กระดาษ", "แก้ว", "โลหะ", "อินทรีย์"}

// QuantityUnit is appended to every quantity estimate.
const QuantityUnit = "กก."

// ReportPrompt asks the model to classify the trash in a single photo.
func ReportPrompt() string {
	return fmt.Sprintf(`You are an expert in waste management and recycling. Analyze this image and provide:
1. The type of waste, using only these categories: %s. If there are several types, join them with a comma (e.g. "พลาสติก, กระดาษ").
2. An estimate of the quantity in kilograms, written as "<number> %s".
3. Your confidence level in this assessment as a number between 0 and 1.

Respond in JSON format like this:
{
  "trashType": "type of waste",
  "quantity": "estimated quantity with unit",
  "confidence": confidence level as a number between 0 and 1
}`, strings.Join(TrashCategories, ", "), QuantityUnit)
}

// CollectPrompt asks the model to confirm a previously reported type and
// quantity against a new photo.
func CollectPrompt(expectedType, expectedQuantity string) string {
	return fmt.Sprintf(`You are an expert in waste management and recycling. Analyze this image and provide:
1. Does the waste type match: %s?
2. Does the quantity match approximately: %s?
3. Your confidence level in this assessment as a number between 0 and 1.

Respond in JSON format like this:
{
  "trashTypeMatch": true or false,
  "quantityMatch": true or false,
  "confidence": confidence level as a number between 0 and 1
}`, expectedType, expectedQuantity)
}

// ComparePrompt asks whether the trash in the first image (before cleanup)
// is gone from the second image (after cleanup) at the same location.
func ComparePrompt() string {
	return `You are an expert in waste management. You are given two images of the same location.
Image 1 was taken before cleanup. Image 2 was taken after cleanup.
Determine whether the trash visible in image 1 is no longer present in image 2.

Respond in JSON format like this:
{
  "trashIsCollected": true or false,
  "confidence": confidence level as a number between 0 and 1
}`
}
