package core

import "fmt"

// prompts.go holds every fixed question and oracle prompt used by the
// interview flow. Keeping them in one file makes the conversation script
// easy to tweak without touching the control flow.

const (
	// GreetingNew opens a conversation with a first-time user.
	GreetingNew = "Hello! I'm your medical assistant. Could you please describe your symptoms in detail?"

	// GreetingReturning opens a conversation with a user we already know.
	GreetingReturning = "Welcome back! How are you feeling today? Please describe your current symptoms in detail."

	// SymptomsRetryQuestion re-asks for symptoms when the answer contained
	// no recognizable symptom vocabulary.
	SymptomsRetryQuestion = "To help you better, I need to understand your symptoms. Could you please describe what health issues you're experiencing?"

	// PreviousHistoryQuestion is the compound doctor-consultation question.
	PreviousHistoryQuestion = "Have you consulted a doctor about these symptoms before? If yes, what was their diagnosis?"

	// DoctorDiagnosisQuestion follows up a bare "yes" to the consultation
	// question.
	DoctorDiagnosisQuestion = "What was the doctor's diagnosis?"

	// MedicationQuestion is the compound medication question.
	MedicationQuestion = "Have you taken any medications for this condition? If yes, what medications and did you experience any side effects?"

	// AdditionalSymptomsQuestion asks for anything not yet mentioned.
	AdditionalSymptomsQuestion = "Besides what you've already mentioned, are you experiencing any other symptoms that we should know about?"

	// ApologyQuestion keeps the conversation alive after a handler-level
	// failure, with the step unchanged.
	ApologyQuestion = "I apologize, but I encountered an error. Could you please try again?"

	// FallbackQuestion is returned when a handler produced no question.
	FallbackQuestion = "What can I help you with?"

	// DefaultPreviousQuestion is validated against when no question has
	// been recorded yet.
	DefaultPreviousQuestion = "How can I help you?"

	// InsufficientDataSummary is returned without an oracle call when the
	// user has no recorded symptoms.
	InsufficientDataSummary = "## Medical Case Summary\n\nInsufficient data to generate a medical case summary. Please complete the consultation."

	// BareYesFeedback rejects a lone "yes" to the consultation question.
	BareYesFeedback = "You mentioned seeing a doctor. Could you please also share what diagnosis they provided?"

	// GreetingInsteadOfSymptomsFeedback rejects a greeting where symptoms
	// were expected.
	GreetingInsteadOfSymptomsFeedback = "I need to understand your symptoms to help you. Could you please describe what health issues you're experiencing in more detail?"

	// ConversationNoteNoSymptoms is logged when the opening answer carried
	// no symptom vocabulary.
	ConversationNoteNoSymptoms = "User didn't provide clear symptoms in initial response"
)

// SimilarDiagnosisPrompt asks the oracle for conditions related to a
// previously named diagnosis.
func SimilarDiagnosisPrompt(symptoms, diagnosis string) string {
	return fmt.Sprintf("For a patient with symptoms %s and a previous diagnosis of %s, suggest 2-3 similar or related possible diagnoses. Keep it brief.", symptoms, diagnosis)
}

// SimilarDiagnosisReply folds the oracle's similarity note into the
// medication question.
func SimilarDiagnosisReply(diagnosis, similar string) string {
	return fmt.Sprintf("Thank you for sharing that information. Based on your previous diagnosis of %s, some similar conditions could include: %s\n\n%s", diagnosis, similar, MedicationQuestion)
}

// MedicationThanksQuestion acknowledges extracted medications before asking
// for additional symptoms.
func MedicationThanksQuestion(medications string) string {
	return fmt.Sprintf("Thank you for sharing that you've taken %s. %s", medications, AdditionalSymptomsQuestion)
}

// AdditionalSymptomsAck thanks the user for newly extracted symptoms.
func AdditionalSymptomsAck(symptoms string) string {
	return fmt.Sprintf("Thank you for sharing these additional symptoms: %s. I'll now analyze all your symptoms and provide a preliminary diagnosis.", symptoms)
}

// NoAdditionalSymptomsAck is the acknowledgement when nothing new was named.
const NoAdditionalSymptomsAck = "Thank you for this information. I'll now analyze your symptoms and provide a preliminary diagnosis."

// DiagnosisPrompt instructs the oracle to produce a bulleted diagnosis from
// everything collected so far.
func DiagnosisPrompt(symptoms, previousHistory, medicationHistory, additionalSymptoms string) string {
	return fmt.Sprintf(`Based on the following patient information, provide a detailed diagnosis:

Symptoms: %s
Previous Medical History: %s
Medication History: %s
Additional Symptoms: %s

Format your diagnosis as a clear bulleted list with:
• Most likely condition(s)
• Brief explanation for each condition
• Key symptoms supporting this diagnosis

Use bullet points (•) for main points and sub-bullets (-) for details.`,
		symptoms, previousHistory, medicationHistory, additionalSymptoms)
}

// CriticalityPrompt asks the oracle for an urgency assessment in a fixed
// textual shape; the "Urgency:" line is what gets parsed afterwards.
func CriticalityPrompt(symptoms, previousHistory, medicationHistory, diagnosis string) string {
	return fmt.Sprintf(`Based on the following patient information:

Symptoms: %s
Previous Medical History: %s
Medication History: %s
Diagnosis: %s

Assess the urgency/severity of this condition.
1. Is immediate medical attention required? Answer only 'yes' or 'no'.
2. When should the patient see a doctor? (immediately, within 24 hours, within a week, routine appointment)
3. What precautions should the patient take in the meantime?

Format your response as:
Urgency: Yes/No
Timeframe: [timeframe]
Precautions: [brief list of precautions]`,
		symptoms, previousHistory, medicationHistory, diagnosis)
}

// CriticalityReply wraps the oracle's assessment in the final user-facing
// message.
func CriticalityReply(assessment string) string {
	return fmt.Sprintf(`Based on your information, here's my assessment:

%s

DISCLAIMER: This is not a substitute for professional medical advice. Always consult with a qualified healthcare provider for proper diagnosis and treatment.
`, assessment)
}

// SummaryPrompt asks the oracle for a physician-facing case summary.
func SummaryPrompt(symptoms, previousHistory, medicationHistory, additionalSymptoms, diagnosis, urgency, extractedDetails string) string {
	return fmt.Sprintf(`Generate a concise, professional medical case summary for a doctor based on the following patient information:

Presenting Symptoms: %s
Medical History: %s
Medication History: %s
Additional Symptoms: %s
Preliminary Diagnosis: %s
Urgency Assessment: %s

Additional Extracted Details: %s

Format the summary as a professional medical case summary that a physician would find useful. Include only factual information provided by the patient. Structure the summary with clear headings for Chief Complaint, History, Medications, Assessment, and Recommendations.`,
		symptoms, previousHistory, medicationHistory, additionalSymptoms, diagnosis, urgency, extractedDetails)
}

// MultiPartFeedback names the clause still missing from a compound answer.
func MultiPartFeedback(missingPart string) string {
	return fmt.Sprintf("Could you please also tell me about %s?", missingPart)
}

// InvalidAnswerFeedback is shown when the oracle judged the answer
// off-topic for the expected category.
func InvalidAnswerFeedback(category Category, reason string) string {
	return fmt.Sprintf("I notice your response doesn't seem to address my question about %s. %s Could you please provide more specific information?", category, reason)
}

// Validation prompts instruct the oracle to judge one answer against one
// question and reply with a strict JSON object.

func validatePreviousHistoryPrompt(question, response string) string {
	return fmt.Sprintf(`As a medical assistant, evaluate if the following response addresses medical history or doctor consultations.
The question is about whether the patient has consulted a doctor about their symptoms before.
A simple "yes" or "no" is valid. A diagnosis name like "viral fever" is a valid response.

Question: "%s"
User Response: "%s"

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "has_consulted_doctor": true/false,
    "extracted_diagnosis": "diagnosis" (if applicable)
}

NOTE: Be very lenient in your evaluation. If the response could reasonably be interpreted as a
previous diagnosis or an indication they have/have not seen a doctor, mark it as valid.`, question, response)
}

func validateSymptomsPrompt(question, response string) string {
	return fmt.Sprintf(`As a medical assistant, evaluate if the following response describes medical symptoms.

Question: "%s"
User Response: "%s"

First, determine if the user is describing any medical symptoms or health concerns.
If yes, extract and list those symptoms.
If no, explain why the response doesn't describe symptoms.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "extracted_symptoms": ["symptom1", "symptom2"] (if applicable)
}`, question, response)
}

func validateMedicationPrompt(question, response string) string {
	return fmt.Sprintf(`As a medical assistant, evaluate if the following response addresses medication history.

Question: "%s"
User Response: "%s"

Determine if the user is describing medications they've taken.
If yes, extract the medications mentioned. If they mention side effects, note those too.
If no medications are mentioned or the response is off-topic, explain why.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "medications": ["medication1", "medication2"] (if applicable),
    "side_effects": ["side effect1", "side effect2"] (if applicable)
}`, question, response)
}

func validateAdditionalSymptomsPrompt(question, response string) string {
	return fmt.Sprintf(`As a medical assistant, evaluate if the following response addresses additional symptoms.

Question: "%s"
User Response: "%s"

Determine if the user is describing additional symptoms beyond what they've mentioned before.
If yes, extract those additional symptoms.
If they clearly state they have no additional symptoms, this is also valid.
If the response is off-topic, explain why.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "has_additional_symptoms": true/false,
    "additional_symptoms": ["symptom1", "symptom2"] (if applicable)
}`, question, response)
}

func validateGeneralPrompt(question, response string) string {
	return fmt.Sprintf(`As a medical assistant, evaluate if the following response is relevant to the question.

Question: "%s"
User Response: "%s"

Determine if the user's response is addressing the question in a meaningful way.

Format your response as JSON:
{
    "is_valid": true/false,
    "reason": "brief explanation",
    "processed_response": "cleaned up version of response" (if applicable)
}`, question, response)
}
