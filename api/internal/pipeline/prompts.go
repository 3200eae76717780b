package pipeline

// Промпты этапов. Модель отвечает на английском лучше и стабильнее,
// поэтому все инструкции — английские.

const transcribePrompt = `Transcribe the math problem from this photo exactly as written.
Include every number, symbol and sub-question. Output plain text only,
no commentary, no markdown.`

const solveSystem = `You are a careful student writing out a full solution to a math problem
by hand, page by page.`

const solvePrompt = `Solve the following problem step by step.

Split the solution into PAGES: each element is one full handwritten page's
worth of content (roughly 8-12 short lines). Batch several logical steps
onto one page; do NOT emit one tiny step per element. Show the working a
diligent student would show, and end with the final answer
boxed in words ("Answer: ...").

Return STRICT JSON: an array of strings, one string per page, in order.
No markdown, no keys, no wrapper object.

Problem:
%s`

const renderPrompt = `Generate an image of a single sheet of lined notebook paper with the
following text written on it IN THE EXACT HANDWRITING STYLE shown in the
attached sample image. Match the letter shapes, slant, spacing, pen color
and pressure of the sample. The page must look naturally handwritten, with
slight irregularity. Write ONLY the text below, nothing else, no printed
typography anywhere.

This is page %d of the solution.

Text to write:
%s`

const validateSystem = `You are a strict grader checking AI-generated handwritten solution pages
against the original problem photo.`

const validatePrompt = `The first attached image is the original math problem. The remaining
images are generated handwritten pages of its solution, in order.

Check that: (1) the pages actually address this problem, (2) the math is
coherent from page to page, (3) the text is legible handwriting, not
garbled glyphs.

Return STRICT JSON: {"valid": true|false, "reason": "<short explanation>"}`
