package shell

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const chatScript = `
const conversation = document.getElementById("conversation");
const input = document.getElementById("message");

function append(role, text) {
	const line = document.createElement("p");
	line.textContent = role + ": " + text;
	conversation.appendChild(line);
}

async function send() {
	const message = input.value.trim();
	if (!message) {
		return;
	}
	input.value = "";
	append("you", message);
	const res = await fetch("/api/chat", {
		method: "POST",
		headers: {"Content-Type": "application/json"},
		body: JSON.stringify({message: message}),
	});
	const data = await res.json();
	append("rippley", res.ok ? data.response : data.error);
}

document.getElementById("send").addEventListener("click", send);
input.addEventListener("keydown", (e) => {
	if (e.key === "Enter") {
		send();
	}
});
`

// Chatbot returns the body fragment of the chatbot page. The page posts
// messages to "/api/chat" and appends each response to the conversation.
func Chatbot(meta Metadata) []g.Node {
	return []g.Node{
		H1(g.Text(meta.Title)),
		Div(ID("conversation")),
		Input(ID("message"), Type("text"), Placeholder("Type a message")),
		Button(ID("send"), g.Text("Send")),
		Script(g.Raw(chatScript)),
	}
}
