package catalog

// DefaultSystemPrompt is used when neither agent nor model define one.
const DefaultSystemPrompt = "I am a helpful, polite, and accurate AI assistant. " +
	"My goal is to answer your questions and provide accurate and useful information."

// Default returns the stock Pollinations catalog. Only flux (image) and
// openai, mistral, phi, hormoz (text) are free.
func Default() *Catalog {
	text := []Model{
		{Name: "openai", Description: "OpenAI GPT-4.1-nano",
			SystemPrompt: "I am an AI assistant named 'Nano'. I am always polite, helpful, and accurate."},
		{Name: "openai-large", Description: "OpenAI GPT-4.1 mini", Premium: true},
		{Name: "openai-reasoning", Description: "OpenAI o4-mini", Premium: true,
			SystemPrompt: "I am a reasoning-focused model. I solve problems step by step and show my work."},
		{Name: "qwen-coder", Description: "Qwen 2.5 Coder 32B", Premium: true,
			SystemPrompt: "I am an assistant specialized in programming, debugging, and code optimization."},
		{Name: "llama", Description: "Llama 3.3 70B", Premium: true},
		{Name: "llamascout", Description: "Llama 4 Scout 17B", Premium: true},
		{Name: "mistral", Description: "Mistral Small 3",
			SystemPrompt: "I am Mistral, a vision-capable assistant. I understand both text and images."},
		{Name: "unity", Description: "Unity Mistral Large", Premium: true},
		{Name: "midijourney", Description: "Midijourney", Premium: true},
		{Name: "rtist", Description: "Rtist", Premium: true},
		{Name: "searchgpt", Description: "SearchGPT", Premium: true},
		{Name: "evil", Description: "Evil", Premium: true},
		{Name: "deepseek-reasoning", Description: "DeepSeek-R1 Distill Qwen 32B", Premium: true},
		{Name: "deepseek-reasoning-large", Description: "DeepSeek R1 - Llama 70B", Premium: true},
		{Name: "phi", Description: "Phi-4 Instruct",
			SystemPrompt: "I am Phi, a multipurpose assistant for text, images, and audio."},
		{Name: "llama-vision", Description: "Llama 3.2 11B Vision", Premium: true},
		{Name: "gemini", Description: "gemini-2.5-flash-preview", Premium: true},
		{Name: "hormoz", Description: "Hormoz 8b",
			SystemPrompt: "I am Hormoz, a small but efficient assistant for everyday questions."},
		{Name: "hypnosis-tracy", Description: "Hypnosis Tracy 7B", Premium: true},
		{Name: "deepseek", Description: "DeepSeek-V3", Premium: true},
		{Name: "sur", Description: "Sur AI Assistant (Mistral)", Premium: true},
		{Name: "openai-audio", Description: "OpenAI GPT-4o-audio-preview", Premium: true},
	}
	image := []Model{
		{Name: "flux", Description: "Flux"},
		{Name: "flux-pro", Description: "Flux Pro", Premium: true},
		{Name: "flux-realism", Description: "Flux Realism", Premium: true},
		{Name: "flux-anime", Description: "Flux Anime", Premium: true},
		{Name: "flux-3d", Description: "Flux 3D", Premium: true},
		{Name: "flux-cablyal", Description: "Flux CablyAl", Premium: true},
	}
	agents := []Agent{
		{Name: "agent-1", Description: "General assistant",
			SystemPrompt: "I am a smart assistant for general and everyday questions."},
		{Name: "agent-2", Description: "Science and technology consultant",
			SystemPrompt: "I am a consultant in scientific and technical fields and give thorough answers."},
		{Name: "agent-3", Description: "Creative companion",
			SystemPrompt: "I help with ideation, storytelling, and creative problem solving."},
	}

	c, err := New(text, image, agents, DefaultSystemPrompt)
	if err != nil {
		panic("catalog: invalid default catalog: " + err.Error())
	}
	return c
}
